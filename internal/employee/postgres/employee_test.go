package postgres_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/employee"
	"github.com/frahmantamala/approval-portal/internal/employee/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Directory", func() {
	var (
		ctx     context.Context
		repo    *postgres.EmployeeRepository
		service *employee.Service

		owner, lead, head, finance, retired *employee.Employee
		team, dept                          *employee.OrgUnit
	)

	add := func(e *employee.Employee) *employee.Employee {
		Expect(repo.Create(ctx, e)).To(Succeed())
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewEmployeeRepository(openDB())
		service = employee.NewService(repo, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

		dept = &employee.OrgUnit{Name: "Engineering", Kind: employee.UnitDepartment}
		Expect(repo.CreateOrgUnit(ctx, dept)).To(Succeed())
		team = &employee.OrgUnit{Name: "Platform", Kind: employee.UnitTeam, ParentID: &dept.ID}
		Expect(repo.CreateOrgUnit(ctx, team)).To(Succeed())

		lead = add(&employee.Employee{Email: "lead@acme.test", Name: "Lee", PasswordHash: "x", TeamID: &team.ID, IsActive: true})
		head = add(&employee.Employee{Email: "head@acme.test", Name: "Hana", PasswordHash: "x", DepartmentID: &dept.ID, IsActive: true})
		finance = add(&employee.Employee{Email: "fin@acme.test", Name: "Farid", PasswordHash: "x", ApprovalRole: string(approval.PolicyFinanceManager), IsActive: true, Permissions: []string{"view_reports"}})
		retired = add(&employee.Employee{Email: "old@acme.test", Name: "Otto", PasswordHash: "x", ApprovalRole: string(approval.PolicyHRManager), IsActive: false})
		owner = add(&employee.Employee{Email: "me@acme.test", Name: "Mira", PasswordHash: "x", TeamID: &team.ID, DepartmentID: &dept.ID, IsActive: true, Permissions: []string{"manage_rooms", "admin"}})

		Expect(repo.SetUnitHead(ctx, team.ID, lead.ID)).To(Succeed())
		Expect(repo.SetUnitHead(ctx, dept.ID, head.ID)).To(Succeed())
	})

	It("should resolve unit heads of the owner", func() {
		a, err := service.ResolveApprover(ctx, owner.ID, approval.PolicyTeamLead)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(&approval.Approver{ID: lead.ID, Name: "Lee"}))

		a, err = service.ResolveApprover(ctx, owner.ID, approval.PolicyDepartmentHead)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.ID).To(Equal(head.ID))
	})

	It("should resolve company-wide roles from the approval role", func() {
		a, err := service.ResolveApprover(ctx, owner.ID, approval.PolicyFinanceManager)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.ID).To(Equal(finance.ID))
	})

	It("should treat vacant and inactive holders as unresolved", func() {
		a, err := service.ResolveApprover(ctx, owner.ID, approval.PolicyDivisionHead)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeNil())

		a, err = service.ResolveApprover(ctx, owner.ID, approval.PolicyHRManager)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeNil())
		Expect(retired.ID).NotTo(BeZero())
	})

	It("should fall back to the direct manager when the team has no head", func() {
		loner := add(&employee.Employee{Email: "solo@acme.test", Name: "Sol", PasswordHash: "x", ManagerID: &head.ID, IsActive: true})
		a, err := service.ResolveApprover(ctx, loner.ID, approval.PolicyTeamLead)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.ID).To(Equal(head.ID))
	})

	It("should build the default chain through the directory", func() {
		builder := approval.NewBuilder(service, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
		chain, err := builder.DefaultChain(ctx, doc.TypeLeave, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		steps := chain.Steps()
		Expect(steps).To(HaveLen(2))
		Expect(steps[0].ApproverID).To(Equal(lead.ID))
		Expect(steps[1].ApproverID).To(Equal(head.ID))
	})

	It("should return profiles and permissions", func() {
		p, err := service.Profile(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Scope().TeamID).To(Equal(&team.ID))

		e, err := service.Get(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Permissions).To(Equal([]string{"admin", "manage_rooms"}))

		_, err = service.Profile(ctx, 999)
		Expect(err).To(MatchError(employee.ErrNotFound))
	})

	It("should list only active employees", func() {
		ids, err := service.ActiveEmployeeIDs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(ConsistOf(lead.ID, head.ID, finance.ID, owner.ID))
	})

	It("should keep an employee created inactive as inactive", func() {
		stored, err := repo.GetByID(ctx, retired.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.IsActive).To(BeFalse())
	})

	It("should render the org tree", func() {
		tree, err := service.OrgTree(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tree).To(HaveLen(1))
		Expect(tree[0].HeadName).To(Equal("Hana"))
		Expect(tree[0].Children[0].HeadName).To(Equal("Lee"))
	})
})
