package leave

import (
	"context"
	"errors"
	"time"

	leaveDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/leave"
	"github.com/shopspring/decimal"
)

type Balance struct {
	ID            int64           `json:"id"`
	EmployeeID    int64           `json:"employee_id"`
	Year          int             `json:"year"`
	TotalDays     decimal.Decimal `json:"total_days"`
	UsedDays      decimal.Decimal `json:"used_days"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
	RewardUsed    decimal.Decimal `json:"reward_used"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewBalance(employeeID int64, year int, total decimal.Decimal) *Balance {
	return &Balance{
		EmployeeID:    employeeID,
		Year:          year,
		TotalDays:     total,
		UsedDays:      decimal.Zero,
		RemainingDays: total,
		RewardUsed:    decimal.Zero,
	}
}

// Covers reports whether the remaining banked days can pay for days.
func (b *Balance) Covers(days decimal.Decimal) bool {
	return !days.GreaterThan(b.RemainingDays)
}

// Consume charges an approved leave. Reward leave is tracked separately and never touches the bank.
func (b *Balance) Consume(days decimal.Decimal, reward bool) error {
	if reward {
		b.RewardUsed = b.RewardUsed.Add(days)
		return nil
	}
	remaining := b.RemainingDays.Sub(days)
	if remaining.IsNegative() {
		return ErrNegativeBalance
	}
	b.UsedDays = b.UsedDays.Add(days)
	b.RemainingDays = remaining
	return nil
}

// Refund reverses a Consume of the same amount.
func (b *Balance) Refund(days decimal.Decimal, reward bool) error {
	if reward {
		used := b.RewardUsed.Sub(days)
		if used.IsNegative() {
			return ErrNegativeBalance
		}
		b.RewardUsed = used
		return nil
	}
	used := b.UsedDays.Sub(days)
	if used.IsNegative() {
		return ErrNegativeBalance
	}
	b.UsedDays = used
	b.RemainingDays = b.RemainingDays.Add(days)
	return nil
}

// Repository persists balances. Implementations bound to a transaction are
// used by the document lifecycle to keep the ledger in step with status writes.
type Repository interface {
	GetBalance(ctx context.Context, employeeID int64, year int) (*Balance, error)
	// GetBalanceForUpdate reads the balance under a row lock where the store supports one.
	GetBalanceForUpdate(ctx context.Context, employeeID int64, year int) (*Balance, error)
	CreateBalance(ctx context.Context, b *Balance) error
	SaveBalance(ctx context.Context, b *Balance) error
	ListBalances(ctx context.Context, year int) ([]*Balance, error)
}

// Ledger applies approved and reversed leave to balances.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) Consume(ctx context.Context, employeeID int64, plan *Plan) (*Balance, error) {
	b, err := l.load(ctx, employeeID, plan)
	if err != nil {
		return nil, err
	}
	if err := b.Consume(plan.TotalDays, plan.Reward); err != nil {
		return nil, err
	}
	if err := l.repo.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *Ledger) Refund(ctx context.Context, employeeID int64, plan *Plan) (*Balance, error) {
	b, err := l.load(ctx, employeeID, plan)
	if err != nil {
		return nil, err
	}
	if err := b.Refund(plan.TotalDays, plan.Reward); err != nil {
		return nil, err
	}
	if err := l.repo.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// load returns the locked balance for the plan year. Reward leave has no bank,
// so a missing row is created empty for it.
func (l *Ledger) load(ctx context.Context, employeeID int64, plan *Plan) (*Balance, error) {
	b, err := l.repo.GetBalanceForUpdate(ctx, employeeID, plan.Year())
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrBalanceNotFound) {
		return nil, err
	}
	if !plan.Reward {
		return nil, ErrNegativeBalance.WithMessage("approved leave has no balance to charge")
	}
	b = NewBalance(employeeID, plan.Year(), decimal.Zero)
	if err := l.repo.CreateBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func ToDataModel(b *Balance) *leaveDatamodel.Balance {
	return &leaveDatamodel.Balance{
		ID:            b.ID,
		EmployeeID:    b.EmployeeID,
		Year:          b.Year,
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.RemainingDays,
		RewardUsed:    b.RewardUsed,
		UpdatedAt:     b.UpdatedAt,
	}
}

func FromDataModel(b *leaveDatamodel.Balance) *Balance {
	return &Balance{
		ID:            b.ID,
		EmployeeID:    b.EmployeeID,
		Year:          b.Year,
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.RemainingDays,
		RewardUsed:    b.RewardUsed,
		UpdatedAt:     b.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*leaveDatamodel.Balance) []*Balance {
	result := make([]*Balance, len(rows))
	for i, r := range rows {
		result[i] = FromDataModel(r)
	}
	return result
}
