package approval_test

import (
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	approverA int64 = 100
	reviewerB int64 = 200
	approverC int64 = 300
	delegateD int64 = 400
)

// startedFlow builds [{1, A, approver}, {1, B, reviewer}, {2, C, approver}] and submits it.
func startedFlow(machine *approval.Machine) *approval.Flow {
	chain := approval.NewChain()
	chain.AddStep(approverA, "A", 1, approval.RoleApprover)
	chain.AddStep(reviewerB, "B", 1, approval.RoleReviewer)
	chain.AddStep(approverC, "C", 2, approval.RoleApprover)

	flow := &approval.Flow{Status: doc.StatusDraft, Steps: chain.Steps()}
	_, err := machine.Start(flow)
	Expect(err).NotTo(HaveOccurred())
	return flow
}

func stepOf(flow *approval.Flow, approverID int64) *approval.Step {
	for _, s := range flow.Steps {
		if s.ApproverID == approverID {
			return s
		}
	}
	Fail("step not found")
	return nil
}

var _ = Describe("Machine", func() {
	var (
		machine *approval.Machine
		flow    *approval.Flow
		now     time.Time
	)

	BeforeEach(func() {
		machine = approval.NewMachine(approval.Options{})
		flow = startedFlow(machine)
		now = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	})

	Describe("Start", func() {
		It("should open the first rank only", func() {
			Expect(flow.Status).To(Equal(doc.StatusPending))
			Expect(*flow.CurrentStep).To(Equal(1))
			Expect(stepOf(flow, approverA).Status).To(Equal(approval.StepPending))
			Expect(stepOf(flow, reviewerB).Status).To(Equal(approval.StepPending))
			Expect(stepOf(flow, approverC).Status).To(Equal(approval.StepWaiting))
		})

		It("should refuse a chain without approvers", func() {
			chain := approval.NewChain()
			chain.AddStep(reviewerB, "B", 1, approval.RoleReviewer)
			_, err := machine.Start(&approval.Flow{Status: doc.StatusDraft, Steps: chain.Steps()})
			Expect(err).To(MatchError(approval.ErrEmptyChain))
		})
	})

	Describe("Approve", func() {
		It("should advance past a rank whose reviewer has not answered", func() {
			t, err := machine.Approve(flow, stepOf(flow, approverA).ID, approverA, nil, now)
			Expect(err).NotTo(HaveOccurred())

			Expect(*flow.CurrentStep).To(Equal(2))
			Expect(flow.Status).To(Equal(doc.StatusPending))
			Expect(t.Advanced()).To(BeTrue())
			Expect(t.Promoted).To(HaveLen(1))
			Expect(stepOf(flow, approverC).Status).To(Equal(approval.StepPending))
			Expect(stepOf(flow, reviewerB).Status).To(Equal(approval.StepPending))
		})

		It("should approve the document when the last rank completes", func() {
			_, err := machine.Approve(flow, stepOf(flow, approverA).ID, approverA, nil, now)
			Expect(err).NotTo(HaveOccurred())

			comment := "ok"
			t, err := machine.Approve(flow, stepOf(flow, approverC).ID, approverC, &comment, now)
			Expect(err).NotTo(HaveOccurred())

			Expect(flow.Status).To(Equal(doc.StatusApproved))
			Expect(flow.CurrentStep).To(BeNil())
			Expect(t.Completed()).To(BeTrue())
			Expect(*stepOf(flow, approverC).Comment).To(Equal("ok"))
			Expect(stepOf(flow, approverC).ApprovedAt).NotTo(BeNil())
		})

		It("should not let a future-rank approver act early", func() {
			_, err := machine.Approve(flow, stepOf(flow, approverC).ID, approverC, nil, now)
			Expect(err).To(MatchError(approval.ErrNotYourTurn))
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
			Expect(stepOf(flow, approverC).Status).To(Equal(approval.StepWaiting))
		})

		It("should refuse a second decision on the same step", func() {
			id := stepOf(flow, approverA).ID
			_, err := machine.Approve(flow, id, approverA, nil, now)
			Expect(err).NotTo(HaveOccurred())

			_, err = machine.Approve(flow, id, approverA, nil, now)
			Expect(err).To(MatchError(approval.ErrNotYourTurn))
		})

		It("should let a reviewer answer while the rank is open", func() {
			_, err := machine.Approve(flow, stepOf(flow, reviewerB).ID, reviewerB, nil, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(*flow.CurrentStep).To(Equal(1))
		})
	})

	Describe("Reject", func() {
		It("should end the chain on an approver rejection", func() {
			t, err := machine.Reject(flow, stepOf(flow, approverA).ID, approverA, "budget exceeded", now)
			Expect(err).NotTo(HaveOccurred())

			Expect(flow.Status).To(Equal(doc.StatusRejected))
			Expect(flow.CurrentStep).To(BeNil())
			Expect(t.Terminated()).To(BeTrue())
			Expect(stepOf(flow, approverA).Status).To(Equal(approval.StepRejected))
			Expect(*stepOf(flow, approverA).Comment).To(Equal("budget exceeded"))
			Expect(stepOf(flow, approverC).Status).To(Equal(approval.StepWaiting))
		})

		It("should keep a reviewer rejection advisory by default", func() {
			_, err := machine.Reject(flow, stepOf(flow, reviewerB).ID, reviewerB, "concerns", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(flow.Status).To(Equal(doc.StatusPending))
			Expect(*flow.CurrentStep).To(Equal(1))
		})

		It("should let a reviewer rejection block when configured", func() {
			blocking := approval.NewMachine(approval.Options{ReviewerRejectionBlocks: true})
			flow = startedFlow(blocking)

			_, err := blocking.Reject(flow, stepOf(flow, reviewerB).ID, reviewerB, "concerns", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(flow.Status).To(Equal(doc.StatusRejected))
		})

		It("should refuse decisions on a closed document", func() {
			_, err := machine.Reject(flow, stepOf(flow, approverA).ID, approverA, "no", now)
			Expect(err).NotTo(HaveOccurred())

			_, err = machine.Approve(flow, stepOf(flow, reviewerB).ID, reviewerB, nil, now)
			Expect(err).To(MatchError(approval.ErrDocumentNotOpen))
		})
	})

	Describe("delegation", func() {
		BeforeEach(func() {
			step := stepOf(flow, approverA)
			_, err := machine.Redelegate(flow, step.ID, approverA, delegateD, "D")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should authorize the delegate", func() {
			step := stepOf(flow, approverA)
			Expect(machine.CanAct(flow, step, delegateD)).To(Succeed())

			_, err := machine.Approve(flow, step.ID, delegateD, nil, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(step.ApproverID).To(Equal(approverA))
		})

		It("should no longer authorize the nominal approver", func() {
			step := stepOf(flow, approverA)
			Expect(machine.CanAct(flow, step, approverA)).To(MatchError(approval.ErrNotYourTurn))
		})

		It("should only let the nominal approver delegate", func() {
			_, err := machine.Redelegate(flow, stepOf(flow, approverC).ID, approverA, delegateD, "D")
			Expect(err).To(MatchError(approval.ErrNotYourTurn))
		})
	})

	Describe("CanAct", func() {
		It("should flag a current step pointing at a missing rank", func() {
			missing := 7
			flow.CurrentStep = &missing
			err := machine.CanAct(flow, stepOf(flow, approverA), approverA)
			Expect(err).To(MatchError(approval.ErrBrokenChain))
			Expect(internal.IsType(err, internal.ErrorTypeIntegrity)).To(BeTrue())
		})
	})
})
