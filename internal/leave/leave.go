package leave

import (
	"fmt"
	"sort"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/shopspring/decimal"
)

type Granularity string

const (
	Full          Granularity = "full"
	MorningHalf   Granularity = "morning_half"
	AfternoonHalf Granularity = "afternoon_half"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

func (g Granularity) Valid() bool {
	switch g {
	case Full, MorningHalf, AfternoonHalf:
		return true
	}
	return false
}

func (g Granularity) IsHalf() bool {
	return g == MorningHalf || g == AfternoonHalf
}

// Days is the amount of leave one date with this granularity consumes.
func (g Granularity) Days() decimal.Decimal {
	if g.IsHalf() {
		return half
	}
	return one
}

// Kind is the persisted leave classification.
type Kind string

const (
	KindAnnual  Kind = "annual"
	KindHalfDay Kind = "half_day"
	KindAward   Kind = "award"
)

type Slot string

const (
	SlotAM Slot = "am"
	SlotPM Slot = "pm"
)

// Selection maps an ISO date (YYYY-MM-DD) to the part of that day taken off.
type Selection map[string]Granularity

// Plan is a validated and normalized leave request.
type Plan struct {
	Start     time.Time       `json:"-"`
	End       time.Time       `json:"-"`
	Days      Selection       `json:"days"`
	TotalDays decimal.Decimal `json:"total_days"`
	Kind      Kind            `json:"leave_type"`
	Slot      *Slot           `json:"half_day_slot,omitempty"`
	Reward    bool            `json:"-"`
}

// Year is the balance year a plan is charged against.
func (p *Plan) Year() int {
	return p.Start.Year()
}

// Span is the inclusive calendar range of the plan as a half-open range.
func (p *Plan) Span() period.Range {
	return period.DateSpan(p.Start, p.End)
}

// Dates returns the selected dates in ascending order.
func (p *Plan) Dates() []string {
	return p.Days.dates()
}

func (s Selection) dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

var (
	ErrInvalidRange       = internal.NewValidationFieldError("end_date", "end date must not be before start date", internal.ErrCodeInvalidRange)
	ErrNoWorkingDays      = internal.NewValidationFieldError("days", "the selected range contains no working days", internal.ErrCodeInvalidRange)
	ErrRewardHalfDay      = internal.NewValidationFieldError("days", "reward leave can only be taken in full days", internal.ErrCodeInvalidGranularity)
	ErrInsufficientDays   = internal.NewValidationError("requested days exceed the remaining leave balance", internal.ErrCodeInsufficientBalance)
	ErrLeaveOverlap       = internal.NewValidationError("the request overlaps another pending or approved leave", internal.ErrCodeLeaveOverlap)
	ErrBalanceNotFound    = internal.NewNotFoundError("no leave balance for this year", internal.ErrCodeBalanceNotFound)
	ErrNegativeBalance    = internal.NewIntegrityError("leave balance would become negative", internal.ErrCodeNegativeBalance)
	ErrInvalidGrantAmount = internal.NewValidationFieldError("days", "granted days must be positive", internal.ErrCodeInvalidAmount)
)

func granularityError(date string, g Granularity, reason string) error {
	return internal.NewValidationFieldError("days",
		fmt.Sprintf("%s cannot be %s: %s", date, g, reason),
		internal.ErrCodeInvalidGranularity)
}

// NewPlan turns an inclusive date range and a per-date selection into a plan.
// Weekdays missing from the selection are taken as full days. Weekend dates and
// dates outside the range are rejected.
func NewPlan(start, end time.Time, selection Selection, reward bool) (*Plan, error) {
	start, end = period.Day(start), period.Day(end)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	weekdays := period.Weekdays(start, end)
	if len(weekdays) == 0 {
		return nil, ErrNoWorkingDays
	}

	inRange := make(map[string]bool, len(weekdays))
	for _, d := range weekdays {
		inRange[d.Format(period.DateLayout)] = true
	}

	days := make(Selection, len(weekdays))
	for date, g := range selection {
		t, err := period.ParseDate(date)
		if err != nil {
			return nil, internal.NewValidationFieldError("days", err.Error(), internal.ErrCodeInvalidDate)
		}
		if !g.Valid() {
			return nil, granularityError(date, g, "unknown granularity")
		}
		key := t.Format(period.DateLayout)
		if period.IsWeekend(t) {
			return nil, granularityError(key, g, "weekends are never counted")
		}
		if !inRange[key] {
			return nil, granularityError(key, g, "date is outside the requested range")
		}
		days[key] = g
	}
	for key := range inRange {
		if _, ok := days[key]; !ok {
			days[key] = Full
		}
	}

	if err := checkPositions(days); err != nil {
		return nil, err
	}

	plan := &Plan{
		Start:  start,
		End:    end,
		Days:   days,
		Reward: reward,
	}
	for _, g := range days {
		plan.TotalDays = plan.TotalDays.Add(g.Days())
	}

	if reward {
		for _, g := range days {
			if g.IsHalf() {
				return nil, ErrRewardHalfDay
			}
		}
		plan.Kind = KindAward
		return plan, nil
	}

	plan.Kind = KindAnnual
	if len(days) == 1 {
		for _, g := range days {
			switch g {
			case MorningHalf:
				slot := SlotAM
				plan.Kind, plan.Slot = KindHalfDay, &slot
			case AfternoonHalf:
				slot := SlotPM
				plan.Kind, plan.Slot = KindHalfDay, &slot
			}
		}
	}
	return plan, nil
}

// checkPositions enforces the edge rules on a multi-date selection and
// normalizes the two-date afternoon/morning split to two full days.
func checkPositions(days Selection) error {
	dates := days.dates()
	if len(dates) == 1 {
		return nil
	}

	first, last := dates[0], dates[len(dates)-1]
	if len(dates) == 2 && days[first] == AfternoonHalf && days[last] == MorningHalf {
		days[first], days[last] = Full, Full
		return nil
	}

	if days[first] == MorningHalf {
		return granularityError(first, MorningHalf, "the first day may only start in the afternoon")
	}
	if days[last] == AfternoonHalf {
		return granularityError(last, AfternoonHalf, "the last day may only end at noon")
	}
	for _, d := range dates[1 : len(dates)-1] {
		if days[d] != Full {
			return granularityError(d, days[d], "days between the first and last must be full")
		}
	}
	return nil
}
