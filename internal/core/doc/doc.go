// Package doc holds the document vocabulary shared by leave accounting, the approval
// state machine and the document lifecycle.
package doc

type Type string

const (
	TypeLeave           Type = "leave"
	TypeRewardLeave     Type = "reward_leave"
	TypeExpense         Type = "expense"
	TypeExpenseProposal Type = "expense_proposal"
	TypeBudget          Type = "budget"
	TypeWelfare         Type = "welfare"
	TypeOvertime        Type = "overtime"
	TypeOvertimeReport  Type = "overtime_report"
	TypeResignation     Type = "resignation"
	TypeGeneral         Type = "general"
)

var knownTypes = map[Type]struct{}{
	TypeLeave:           {},
	TypeRewardLeave:     {},
	TypeExpense:         {},
	TypeExpenseProposal: {},
	TypeBudget:          {},
	TypeWelfare:         {},
	TypeOvertime:        {},
	TypeOvertimeReport:  {},
	TypeResignation:     {},
	TypeGeneral:         {},
}

func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

func (t Type) IsLeave() bool {
	return t == TypeLeave || t == TypeRewardLeave
}

// ForcesPrivate reports whether documents of this type are always private.
func (t Type) ForcesPrivate() bool {
	return t.IsLeave() || t == TypeResignation
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusRetrieved Status = "retrieved"
)

type Visibility string

const (
	VisibilityPrivate    Visibility = "private"
	VisibilityTeam       Visibility = "team"
	VisibilityDepartment Visibility = "department"
	VisibilityDivision   Visibility = "division"
	VisibilityPublic     Visibility = "public"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityDepartment, VisibilityDivision, VisibilityPublic:
		return true
	}
	return false
}

// Effective applies the forced-private rule and defaults an empty choice to team.
func Effective(t Type, requested Visibility) Visibility {
	if t.ForcesPrivate() {
		return VisibilityPrivate
	}
	if requested == "" {
		return VisibilityTeam
	}
	return requested
}
