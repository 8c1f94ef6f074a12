package approval

import (
	"time"

	"github.com/frahmantamala/approval-portal/internal"
)

type Role string

const (
	RoleApprover Role = "approver"
	RoleReviewer Role = "reviewer"
)

func (r Role) Valid() bool {
	return r == RoleApprover || r == RoleReviewer
}

type StepStatus string

const (
	StepWaiting  StepStatus = "waiting"
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
)

func (s StepStatus) Decided() bool {
	return s == StepApproved || s == StepRejected
}

// Step is one approver's slot in a rank.
type Step struct {
	ID           int64      `json:"id"`
	DocumentID   int64      `json:"document_id,omitempty"`
	Order        int        `json:"step_order"`
	ApproverID   int64      `json:"approver_id"`
	ApproverName string     `json:"approver_name"`
	Role         Role       `json:"role"`
	Status       StepStatus `json:"status"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	Comment      *string    `json:"comment,omitempty"`
	IsDelegated  bool       `json:"is_delegated"`
	DelegateID   *int64     `json:"delegate_id,omitempty"`
	DelegateName *string    `json:"delegate_name,omitempty"`
}

// ActingID is the employee who currently holds the right to decide this step.
func (s *Step) ActingID() int64 {
	if s.IsDelegated && s.DelegateID != nil {
		return *s.DelegateID
	}
	return s.ApproverID
}

func (s *Step) Involves(employeeID int64) bool {
	if s.ApproverID == employeeID {
		return true
	}
	return s.DelegateID != nil && *s.DelegateID == employeeID
}

// Rank groups the steps that share one order value.
type Rank struct {
	Order int     `json:"order"`
	Steps []*Step `json:"steps"`
}

func (r Rank) HasApprover() bool {
	for _, s := range r.Steps {
		if s.Role == RoleApprover {
			return true
		}
	}
	return false
}

var (
	ErrEmptyChain       = internal.NewValidationError("the approval chain needs at least one approver", internal.ErrCodeEmptyChain)
	ErrInvalidOrder     = internal.NewValidationError("step order must be a positive integer", internal.ErrCodeInvalidStep)
	ErrInvalidRole      = internal.NewValidationError("step role must be approver or reviewer", internal.ErrCodeInvalidStep)
	ErrInvalidApprover  = internal.NewValidationError("step approver is required", internal.ErrCodeInvalidStep)
	ErrInvalidDelegate  = internal.NewValidationError("a step cannot be delegated to its own approver", internal.ErrCodeInvalidStep)
	ErrRankNotFound     = internal.NewNotFoundError("no steps at the given order", internal.ErrCodeStepNotFound)
	ErrStepNotFound     = internal.NewNotFoundError("approval step not found", internal.ErrCodeStepNotFound)
	ErrNotYourTurn      = internal.NewForbiddenError("you are not the acting approver of the current step", internal.ErrCodeNotYourTurn)
	ErrStepNotPending   = internal.NewForbiddenError("the approval step is not awaiting a decision", internal.ErrCodeStepNotPending)
	ErrDocumentNotOpen  = internal.NewForbiddenError("the document is not awaiting approval", internal.ErrCodeInvalidStatus)
	ErrBrokenChain      = internal.NewIntegrityError("current step does not reference an existing rank", internal.ErrCodeBrokenChain)
	ErrStepAlreadyFixed = internal.NewValidationError("a decided step cannot be delegated", internal.ErrCodeInvalidStep)
)
