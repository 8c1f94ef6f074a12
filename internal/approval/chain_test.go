package approval_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeDirectory struct {
	approvers map[approval.PolicyRole]*approval.Approver
	err       error
}

func (f *fakeDirectory) ResolveApprover(ctx context.Context, ownerID int64, role approval.PolicyRole) (*approval.Approver, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.approvers[role], nil
}

func orders(steps []*approval.Step) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.Order
	}
	return out
}

var _ = Describe("Chain", func() {
	var chain *approval.Chain

	BeforeEach(func() {
		chain = approval.NewChain()
	})

	Describe("AddStep", func() {
		It("should join an existing rank when the order is shared", func() {
			_, err := chain.AddStep(10, "Alice", 1, approval.RoleApprover)
			Expect(err).NotTo(HaveOccurred())
			_, err = chain.AddStep(11, "Bob", 1, approval.RoleReviewer)
			Expect(err).NotTo(HaveOccurred())
			_, err = chain.AddStep(12, "Carol", 3, approval.RoleApprover)
			Expect(err).NotTo(HaveOccurred())

			ranks := chain.Ranks()
			Expect(ranks).To(HaveLen(2))
			Expect(ranks[0].Order).To(Equal(1))
			Expect(ranks[0].Steps).To(HaveLen(2))
			Expect(ranks[1].Order).To(Equal(3))
		})

		It("should reject a non-positive order", func() {
			_, err := chain.AddStep(10, "Alice", 0, approval.RoleApprover)
			Expect(err).To(MatchError(approval.ErrInvalidOrder))
		})

		It("should default the role to approver", func() {
			step, err := chain.AddStep(10, "Alice", 1, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(step.Role).To(Equal(approval.RoleApprover))
			Expect(step.Status).To(Equal(approval.StepWaiting))
		})
	})

	Describe("MoveRank", func() {
		BeforeEach(func() {
			chain.AddStep(10, "Alice", 1, approval.RoleApprover)
			chain.AddStep(11, "Bob", 1, approval.RoleReviewer)
			chain.AddStep(12, "Carol", 2, approval.RoleApprover)
		})

		It("should swap whole ranks", func() {
			Expect(chain.MoveRank(1, 2)).To(Succeed())

			ranks := chain.Ranks()
			Expect(ranks[0].Order).To(Equal(1))
			Expect(ranks[0].Steps).To(HaveLen(1))
			Expect(ranks[0].Steps[0].ApproverID).To(Equal(int64(12)))
			Expect(ranks[1].Order).To(Equal(2))
			Expect(ranks[1].Steps).To(HaveLen(2))
		})

		It("should move into an empty order without shifting others", func() {
			Expect(chain.MoveRank(2, 5)).To(Succeed())
			Expect(orders(chain.Steps())).To(Equal([]int{1, 1, 5}))
		})

		It("should fail for an unknown source rank", func() {
			Expect(chain.MoveRank(4, 1)).To(MatchError(approval.ErrRankNotFound))
		})
	})

	Describe("RemoveStep", func() {
		It("should leave gaps in the order sequence", func() {
			chain.AddStep(10, "Alice", 1, approval.RoleApprover)
			middle, _ := chain.AddStep(11, "Bob", 2, approval.RoleApprover)
			chain.AddStep(12, "Carol", 3, approval.RoleApprover)

			Expect(chain.RemoveStep(middle.ID)).To(Succeed())
			Expect(orders(chain.Steps())).To(Equal([]int{1, 3}))
			Expect(chain.RemoveStep(middle.ID)).To(MatchError(approval.ErrStepNotFound))
		})
	})

	Describe("Delegate", func() {
		It("should keep the nominal approver and transfer the action right", func() {
			step, _ := chain.AddStep(10, "Alice", 1, approval.RoleApprover)

			Expect(chain.Delegate(step.ID, 20, "Dan")).To(Succeed())

			got := chain.Steps()[0]
			Expect(got.ApproverID).To(Equal(int64(10)))
			Expect(got.IsDelegated).To(BeTrue())
			Expect(got.ActingID()).To(Equal(int64(20)))
		})

		It("should refuse delegating to the approver themself", func() {
			step, _ := chain.AddStep(10, "Alice", 1, approval.RoleApprover)
			Expect(chain.Delegate(step.ID, 10, "Alice")).To(MatchError(approval.ErrInvalidDelegate))
		})
	})

	Describe("Validate", func() {
		It("should reject an empty chain", func() {
			Expect(chain.Validate()).To(MatchError(approval.ErrEmptyChain))
		})

		It("should reject a chain with only reviewers", func() {
			chain.AddStep(11, "Bob", 1, approval.RoleReviewer)
			Expect(chain.Validate()).To(MatchError(approval.ErrEmptyChain))
		})
	})
})

var _ = Describe("Builder", func() {
	var (
		directory *fakeDirectory
		builder   *approval.Builder
		logger    *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		directory = &fakeDirectory{approvers: map[approval.PolicyRole]*approval.Approver{
			approval.PolicyTeamLead:       {ID: 2, Name: "Lead"},
			approval.PolicyFinanceManager: {ID: 3, Name: "Finance"},
			approval.PolicyDepartmentHead: {ID: 4, Name: "Head"},
		}}
		builder = approval.NewBuilder(directory, nil, logger)
	})

	It("should route expenses through the finance chain in policy order", func() {
		chain, err := builder.DefaultChain(context.Background(), doc.TypeExpense, 1)
		Expect(err).NotTo(HaveOccurred())

		steps := chain.Steps()
		Expect(steps).To(HaveLen(2))
		Expect(steps[0].ApproverID).To(Equal(int64(2)))
		Expect(steps[0].Order).To(Equal(1))
		Expect(steps[1].ApproverID).To(Equal(int64(3)))
		Expect(steps[1].Order).To(Equal(2))
	})

	It("should skip vacant roles", func() {
		chain, err := builder.DefaultChain(context.Background(), doc.TypeWelfare, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain.IsEmpty()).To(BeTrue())
	})

	It("should skip the owner when they hold the role", func() {
		chain, err := builder.DefaultChain(context.Background(), doc.TypeOvertime, 2)
		Expect(err).NotTo(HaveOccurred())
		steps := chain.Steps()
		Expect(steps).To(HaveLen(1))
		Expect(steps[0].ApproverID).To(Equal(int64(4)))
		Expect(steps[0].Order).To(Equal(1))
	})

	It("should fail closed for types without a policy", func() {
		chain, err := builder.DefaultChain(context.Background(), doc.TypeGeneral, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain.IsEmpty()).To(BeTrue())
	})

	It("should surface directory failures", func() {
		directory.err = errors.New("directory down")
		_, err := builder.DefaultChain(context.Background(), doc.TypeExpense, 1)
		Expect(err).To(HaveOccurred())
	})
})
