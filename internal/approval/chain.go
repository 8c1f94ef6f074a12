package approval

import (
	"sort"
)

// Chain is an editable approval route: ordered ranks of unordered steps.
// Draft step IDs are local to the chain until the document is persisted.
type Chain struct {
	ranks  map[int][]*Step
	nextID int64
}

func NewChain() *Chain {
	return &Chain{ranks: make(map[int][]*Step), nextID: 1}
}

// AddStep places a step at order; an existing order gains a parallel member.
func (c *Chain) AddStep(approverID int64, approverName string, order int, role Role) (*Step, error) {
	if approverID <= 0 {
		return nil, ErrInvalidApprover
	}
	if order < 1 {
		return nil, ErrInvalidOrder
	}
	if role == "" {
		role = RoleApprover
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	step := &Step{
		ID:           c.nextID,
		Order:        order,
		ApproverID:   approverID,
		ApproverName: approverName,
		Role:         role,
		Status:       StepWaiting,
	}
	c.nextID++
	c.ranks[order] = append(c.ranks[order], step)
	return step, nil
}

// MoveRank swaps every step at from with every step at to.
func (c *Chain) MoveRank(from, to int) error {
	if from < 1 || to < 1 {
		return ErrInvalidOrder
	}
	src, ok := c.ranks[from]
	if !ok {
		return ErrRankNotFound
	}
	if from == to {
		return nil
	}
	dst := c.ranks[to]

	for _, s := range src {
		s.Order = to
	}
	for _, s := range dst {
		s.Order = from
	}

	c.ranks[to] = src
	if len(dst) > 0 {
		c.ranks[from] = dst
	} else {
		delete(c.ranks, from)
	}
	return nil
}

// RemoveStep drops one step; surviving ranks keep their order values.
func (c *Chain) RemoveStep(stepID int64) error {
	for order, steps := range c.ranks {
		for i, s := range steps {
			if s.ID != stepID {
				continue
			}
			remaining := append(steps[:i:i], steps[i+1:]...)
			if len(remaining) == 0 {
				delete(c.ranks, order)
			} else {
				c.ranks[order] = remaining
			}
			return nil
		}
	}
	return ErrStepNotFound
}

// Delegate hands the action right to delegateID; the nominal approver stays on record.
func (c *Chain) Delegate(stepID, delegateID int64, delegateName string) error {
	step := c.find(stepID)
	if step == nil {
		return ErrStepNotFound
	}
	return delegateStep(step, delegateID, delegateName)
}

func delegateStep(step *Step, delegateID int64, delegateName string) error {
	if step.Status.Decided() {
		return ErrStepAlreadyFixed
	}
	if delegateID <= 0 || delegateID == step.ApproverID {
		return ErrInvalidDelegate
	}
	step.IsDelegated = true
	step.DelegateID = &delegateID
	name := delegateName
	step.DelegateName = &name
	return nil
}

func (c *Chain) find(stepID int64) *Step {
	for _, steps := range c.ranks {
		for _, s := range steps {
			if s.ID == stepID {
				return s
			}
		}
	}
	return nil
}

// Ranks returns the ranks in ascending order.
func (c *Chain) Ranks() []Rank {
	return groupRanks(c.Steps())
}

// Steps returns all steps flattened in rank order.
func (c *Chain) Steps() []*Step {
	var steps []*Step
	for _, rank := range c.ranks {
		steps = append(steps, rank...)
	}
	sortSteps(steps)
	return steps
}

func (c *Chain) Len() int {
	n := 0
	for _, steps := range c.ranks {
		n += len(steps)
	}
	return n
}

func (c *Chain) IsEmpty() bool {
	return c.Len() == 0
}

// Validate is the submission precondition: at least one approver-role step.
func (c *Chain) Validate() error {
	for _, rank := range c.Ranks() {
		if rank.HasApprover() {
			return nil
		}
	}
	return ErrEmptyChain
}

func sortSteps(steps []*Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Order != steps[j].Order {
			return steps[i].Order < steps[j].Order
		}
		return steps[i].ID < steps[j].ID
	})
}

// GroupRanks groups steps by order in ascending order without copying them.
func GroupRanks(steps []*Step) []Rank {
	sorted := make([]*Step, len(steps))
	copy(sorted, steps)
	sortSteps(sorted)
	return groupRanks(sorted)
}

func groupRanks(sorted []*Step) []Rank {
	var ranks []Rank
	for _, s := range sorted {
		if n := len(ranks); n > 0 && ranks[n-1].Order == s.Order {
			ranks[n-1].Steps = append(ranks[n-1].Steps, s)
			continue
		}
		ranks = append(ranks, Rank{Order: s.Order, Steps: []*Step{s}})
	}
	return ranks
}
