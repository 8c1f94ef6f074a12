package approval

import (
	"time"

	"github.com/frahmantamala/approval-portal/internal/core/doc"
)

type Options struct {
	// ReviewerRejectionBlocks makes a reviewer rejection terminate the document.
	ReviewerRejectionBlocks bool
}

// Machine decides whose turn it is and what a decision does to a document.
type Machine struct {
	opts Options
}

func NewMachine(opts Options) *Machine {
	return &Machine{opts: opts}
}

// Flow is the approval state of one document.
type Flow struct {
	Status      doc.Status
	CurrentStep *int
	Steps       []*Step
}

func (f *Flow) Step(stepID int64) *Step {
	for _, s := range f.Steps {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

func (f *Flow) Ranks() []Rank {
	return GroupRanks(f.Steps)
}

func (f *Flow) hasRank(order int) bool {
	for _, s := range f.Steps {
		if s.Order == order && s.Role == RoleApprover {
			return true
		}
	}
	return false
}

type Transition struct {
	Step         *Step
	Promoted     []*Step
	From         doc.Status
	To           doc.Status
	PreviousStep *int
	CurrentStep  *int
	At           time.Time
}

func (t *Transition) Completed() bool {
	return t.From == doc.StatusPending && t.To == doc.StatusApproved
}

func (t *Transition) Terminated() bool {
	return t.From == doc.StatusPending && t.To == doc.StatusRejected
}

func (t *Transition) Advanced() bool {
	if t.PreviousStep == nil || t.CurrentStep == nil {
		return false
	}
	return *t.PreviousStep != *t.CurrentStep
}

// CurrentRank is the lowest order that still has an approver-role step not yet approved.
func CurrentRank(steps []*Step) *int {
	var current *int
	for _, s := range steps {
		if s.Role != RoleApprover || s.Status == StepApproved {
			continue
		}
		if current == nil || s.Order < *current {
			order := s.Order
			current = &order
		}
	}
	return current
}

// Start moves a freshly submitted document to pending and opens its first rank.
func (m *Machine) Start(flow *Flow) ([]*Step, error) {
	for _, s := range flow.Steps {
		s.Status = StepWaiting
		s.ApprovedAt = nil
		s.Comment = nil
	}
	current := CurrentRank(flow.Steps)
	if current == nil {
		return nil, ErrEmptyChain
	}
	flow.Status = doc.StatusPending
	flow.CurrentStep = current
	return activate(flow, *current), nil
}

// CanAct reports whether actorID may decide the step now.
func (m *Machine) CanAct(flow *Flow, step *Step, actorID int64) error {
	if flow.Status != doc.StatusPending {
		return ErrDocumentNotOpen
	}
	if step.ActingID() != actorID {
		return ErrNotYourTurn
	}
	if flow.CurrentStep == nil || !flow.hasRank(*flow.CurrentStep) {
		return ErrBrokenChain
	}
	switch step.Role {
	case RoleApprover:
		if step.Order != *flow.CurrentStep {
			return ErrNotYourTurn
		}
	case RoleReviewer:
		if step.Order > *flow.CurrentStep {
			return ErrNotYourTurn
		}
	}
	if step.Status != StepPending {
		return ErrStepNotPending
	}
	return nil
}

func (m *Machine) Approve(flow *Flow, stepID, actorID int64, comment *string, now time.Time) (*Transition, error) {
	step := flow.Step(stepID)
	if step == nil {
		return nil, ErrStepNotFound
	}
	if err := m.CanAct(flow, step, actorID); err != nil {
		return nil, err
	}

	t := &Transition{
		Step:         step,
		From:         flow.Status,
		PreviousStep: copyOrder(flow.CurrentStep),
		At:           now,
	}

	step.Status = StepApproved
	step.ApprovedAt = &now
	step.Comment = comment

	next := CurrentRank(flow.Steps)
	switch {
	case next == nil:
		flow.Status = doc.StatusApproved
		flow.CurrentStep = nil
	case *next != *flow.CurrentStep:
		flow.CurrentStep = next
		t.Promoted = activate(flow, *next)
	}

	t.To = flow.Status
	t.CurrentStep = copyOrder(flow.CurrentStep)
	return t, nil
}

// Reject records the decision; an approver rejection ends the whole chain.
func (m *Machine) Reject(flow *Flow, stepID, actorID int64, reason string, now time.Time) (*Transition, error) {
	step := flow.Step(stepID)
	if step == nil {
		return nil, ErrStepNotFound
	}
	if err := m.CanAct(flow, step, actorID); err != nil {
		return nil, err
	}

	t := &Transition{
		Step:         step,
		From:         flow.Status,
		PreviousStep: copyOrder(flow.CurrentStep),
		At:           now,
	}

	step.Status = StepRejected
	step.ApprovedAt = &now
	step.Comment = &reason

	if step.Role == RoleApprover || m.opts.ReviewerRejectionBlocks {
		flow.Status = doc.StatusRejected
		flow.CurrentStep = nil
	}

	t.To = flow.Status
	t.CurrentStep = copyOrder(flow.CurrentStep)
	return t, nil
}

// Redelegate lets the nominal approver hand an undecided step to someone else.
func (m *Machine) Redelegate(flow *Flow, stepID, actorID, delegateID int64, delegateName string) (*Step, error) {
	if flow.Status != doc.StatusPending {
		return nil, ErrDocumentNotOpen
	}
	step := flow.Step(stepID)
	if step == nil {
		return nil, ErrStepNotFound
	}
	if step.ApproverID != actorID {
		return nil, ErrNotYourTurn
	}
	if err := delegateStep(step, delegateID, delegateName); err != nil {
		return nil, err
	}
	return step, nil
}

// activate opens every waiting step at or below order.
func activate(flow *Flow, order int) []*Step {
	var promoted []*Step
	for _, s := range flow.Steps {
		if s.Status == StepWaiting && s.Order <= order {
			s.Status = StepPending
			promoted = append(promoted, s)
		}
	}
	return promoted
}

func copyOrder(o *int) *int {
	if o == nil {
		return nil
	}
	v := *o
	return &v
}
