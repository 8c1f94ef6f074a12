package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// EmployeeSource lists the employees that accrue leave.
type EmployeeSource interface {
	ActiveEmployeeIDs(ctx context.Context) ([]int64, error)
}

type Service struct {
	repo      Repository
	employees EmployeeSource
	calendar  Calendar
	logger    *slog.Logger
}

func NewService(repo Repository, employees EmployeeSource, calendar Calendar, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		employees: employees,
		calendar:  calendar,
		logger:    logger,
	}
}

func (s *Service) GetBalance(ctx context.Context, employeeID int64, year int) (*Balance, error) {
	b, err := s.repo.GetBalance(ctx, employeeID, year)
	if err != nil {
		if !errors.Is(err, ErrBalanceNotFound) {
			s.logger.Error("failed to load leave balance", "error", err, "employee_id", employeeID, "year", year)
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) ListBalances(ctx context.Context, year int) ([]*Balance, error) {
	balances, err := s.repo.ListBalances(ctx, year)
	if err != nil {
		s.logger.Error("failed to list leave balances", "error", err, "year", year)
		return nil, err
	}
	return balances, nil
}

// GrantYear opens a balance of days for every active employee lacking one for year.
// Existing balances are left untouched, so running it twice is harmless.
func (s *Service) GrantYear(ctx context.Context, year int, days decimal.Decimal) (int, error) {
	if !days.IsPositive() {
		return 0, ErrInvalidGrantAmount
	}

	ids, err := s.employees.ActiveEmployeeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active employees: %w", err)
	}

	created := 0
	for _, id := range ids {
		_, err := s.repo.GetBalance(ctx, id, year)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrBalanceNotFound) {
			return created, fmt.Errorf("load balance of employee %d: %w", id, err)
		}
		if err := s.repo.CreateBalance(ctx, NewBalance(id, year, days)); err != nil {
			return created, fmt.Errorf("create balance of employee %d: %w", id, err)
		}
		created++
	}

	s.logger.Info("leave balances granted", "year", year, "days", days.String(), "created", created, "employees", len(ids))
	return created, nil
}

// Quote computes a leave request without submitting it.
func (s *Service) Quote(ctx context.Context, employeeID int64, dto QuoteDTO) (*QuoteResult, error) {
	plan, err := dto.Request().Plan(dto.Reward)
	if err != nil {
		return nil, err
	}

	result := &QuoteResult{
		StartDate: dto.StartDate,
		EndDate:   dto.EndDate,
		Days:      plan.Days,
		TotalDays: plan.TotalDays,
		LeaveType: plan.Kind,
		Slot:      plan.Slot,
	}

	if !plan.Reward {
		b, err := s.repo.GetBalance(ctx, employeeID, plan.Year())
		switch {
		case err == nil:
			result.RemainingDays = &b.RemainingDays
			covered := b.Covers(plan.TotalDays)
			result.Covered = &covered
		case !errors.Is(err, ErrBalanceNotFound):
			return nil, err
		}
	}

	if s.calendar != nil {
		taken, err := s.calendar.ActiveLeave(ctx, employeeID, plan.Span())
		if err != nil {
			return nil, err
		}
		result.Overlaps = len(taken) > 0
	}
	return result, nil
}
