package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/approval-portal/internal/core/doc"
)

// PolicyRole is an organisational position that a default chain routes through.
type PolicyRole string

const (
	PolicyTeamLead       PolicyRole = "team_lead"
	PolicyDepartmentHead PolicyRole = "department_head"
	PolicyDivisionHead   PolicyRole = "division_head"
	PolicyFinanceManager PolicyRole = "finance_manager"
	PolicyHRManager      PolicyRole = "hr_manager"
	PolicyCEO            PolicyRole = "ceo"
)

type Approver struct {
	ID   int64
	Name string
}

// Directory resolves a policy role to a concrete employee for a document owner.
// A nil approver with a nil error means the role is vacant for that owner.
type Directory interface {
	ResolveApprover(ctx context.Context, ownerID int64, role PolicyRole) (*Approver, error)
}

func DefaultPolicies() map[doc.Type][]PolicyRole {
	manager := []PolicyRole{PolicyTeamLead, PolicyDepartmentHead}
	finance := []PolicyRole{PolicyTeamLead, PolicyFinanceManager}
	return map[doc.Type][]PolicyRole{
		doc.TypeLeave:           manager,
		doc.TypeRewardLeave:     manager,
		doc.TypeOvertime:        manager,
		doc.TypeOvertimeReport:  manager,
		doc.TypeExpense:         finance,
		doc.TypeExpenseProposal: finance,
		doc.TypeBudget:          {PolicyTeamLead, PolicyDepartmentHead, PolicyFinanceManager},
		doc.TypeWelfare:         {PolicyHRManager},
		doc.TypeResignation:     {PolicyTeamLead, PolicyDepartmentHead, PolicyHRManager, PolicyCEO},
	}
}

type Builder struct {
	directory Directory
	policies  map[doc.Type][]PolicyRole
	logger    *slog.Logger
}

func NewBuilder(directory Directory, policies map[doc.Type][]PolicyRole, logger *slog.Logger) *Builder {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Builder{
		directory: directory,
		policies:  policies,
		logger:    logger,
	}
}

// DefaultChain proposes one approver per policy role at orders 1, 2, 3...
// Vacant roles, the owner themself and repeated approvers are skipped.
// A type without a policy yields an empty chain.
func (b *Builder) DefaultChain(ctx context.Context, docType doc.Type, ownerID int64) (*Chain, error) {
	chain := NewChain()

	roles, ok := b.policies[docType]
	if !ok {
		b.logger.Debug("no approval policy for document type", "doc_type", docType)
		return chain, nil
	}

	seen := map[int64]bool{ownerID: true}
	order := 1
	for _, role := range roles {
		approver, err := b.directory.ResolveApprover(ctx, ownerID, role)
		if err != nil {
			return nil, fmt.Errorf("resolve %s for employee %d: %w", role, ownerID, err)
		}
		if approver == nil {
			b.logger.Info("approval policy role is vacant, skipping", "doc_type", docType, "role", role, "owner_id", ownerID)
			continue
		}
		if seen[approver.ID] {
			continue
		}
		seen[approver.ID] = true

		if _, err := chain.AddStep(approver.ID, approver.Name, order, RoleApprover); err != nil {
			return nil, err
		}
		order++
	}
	return chain, nil
}
