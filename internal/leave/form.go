package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/core/common/validation"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/shopspring/decimal"
)

// Request is the leave form as submitted by the employee.
type Request struct {
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Days      Selection `json:"days,omitempty"`
	Reason    string    `json:"reason"`
	Contact   string    `json:"contact,omitempty"`
}

// Payload is the normalized leave form stored on the document.
type Payload struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Days      Selection       `json:"days"`
	TotalDays decimal.Decimal `json:"total_days"`
	LeaveType Kind            `json:"leave_type"`
	Slot      *Slot           `json:"half_day_slot,omitempty"`
	Reason    string          `json:"reason"`
	Contact   string          `json:"contact,omitempty"`
}

// Calendar lists leave periods already holding the employee's time.
type Calendar interface {
	// ActiveLeave returns the pending or approved leave spans of employeeID overlapping r.
	ActiveLeave(ctx context.Context, employeeID int64, r period.Range) ([]period.Range, error)
}

// FormValidator validates leave and reward leave forms.
type FormValidator struct {
	balances Repository
	calendar Calendar
	reward   bool
}

func NewFormValidator(balances Repository, calendar Calendar, reward bool) *FormValidator {
	return &FormValidator{
		balances: balances,
		calendar: calendar,
		reward:   reward,
	}
}

func (v *FormValidator) Validate(ctx context.Context, in doc.FormInput) (*doc.Form, error) {
	var req Request
	if err := json.Unmarshal(in.Raw, &req); err != nil {
		return nil, internal.NewValidationError("leave form is not valid JSON", internal.ErrCodeInvalidPayload).WithCause(err)
	}

	// drafts may be saved before dates are chosen
	if in.Stage == doc.StageDraft && (req.StartDate == "" || req.EndDate == "") {
		return &doc.Form{Data: in.Raw, Summary: "leave draft"}, nil
	}

	if err := validateRequest(req, in.Stage); err != nil {
		return nil, err
	}

	plan, err := req.Plan(v.reward)
	if err != nil {
		return nil, err
	}

	if in.Stage == doc.StageSubmission {
		if err := v.checkCalendar(ctx, in.OwnerID, plan); err != nil {
			return nil, err
		}
		if err := v.checkBalance(ctx, in.OwnerID, plan); err != nil {
			return nil, err
		}
	}

	payload := Payload{
		StartDate: plan.Start.Format(period.DateLayout),
		EndDate:   plan.End.Format(period.DateLayout),
		Days:      plan.Days,
		TotalDays: plan.TotalDays,
		LeaveType: plan.Kind,
		Slot:      plan.Slot,
		Reason:    strings.TrimSpace(req.Reason),
		Contact:   req.Contact,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode leave payload: %w", err)
	}

	start, end := plan.Start, plan.End
	return &doc.Form{
		Data:        data,
		Summary:     summarize(plan),
		PeriodStart: &start,
		PeriodEnd:   &end,
	}, nil
}

func validateRequest(req Request, stage doc.Stage) error {
	validator := validation.NewValidator()
	validator.Field("start_date", req.StartDate).Required()
	validator.Field("end_date", req.EndDate).Required()
	reason := validator.Field("reason", req.Reason).MaxLength(1000)
	if stage == doc.StageSubmission {
		reason.Required()
	}
	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

// Plan parses the request dates and builds its plan.
func (r Request) Plan(reward bool) (*Plan, error) {
	start, err := period.ParseDate(r.StartDate)
	if err != nil {
		return nil, internal.NewValidationFieldError("start_date", err.Error(), internal.ErrCodeInvalidDate)
	}
	end, err := period.ParseDate(r.EndDate)
	if err != nil {
		return nil, internal.NewValidationFieldError("end_date", err.Error(), internal.ErrCodeInvalidDate)
	}
	return NewPlan(start, end, r.Days, reward)
}

// PlanFromPayload rebuilds the plan of a stored leave payload.
func PlanFromPayload(data []byte, reward bool) (*Plan, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode leave payload: %w", err)
	}
	return Request{StartDate: p.StartDate, EndDate: p.EndDate, Days: p.Days}.Plan(reward)
}

func (v *FormValidator) checkCalendar(ctx context.Context, employeeID int64, plan *Plan) error {
	if v.calendar == nil {
		return nil
	}
	span := plan.Span()
	taken, err := v.calendar.ActiveLeave(ctx, employeeID, span)
	if err != nil {
		return fmt.Errorf("load active leave: %w", err)
	}
	for _, r := range taken {
		if r.Overlaps(span) {
			return ErrLeaveOverlap
		}
	}
	return nil
}

func (v *FormValidator) checkBalance(ctx context.Context, employeeID int64, plan *Plan) error {
	if plan.Reward {
		return nil
	}
	balance, err := v.balances.GetBalance(ctx, employeeID, plan.Year())
	if errors.Is(err, ErrBalanceNotFound) {
		return ErrInsufficientDays.WithMessage(fmt.Sprintf("no leave balance has been granted for %d", plan.Year()))
	}
	if err != nil {
		return fmt.Errorf("load leave balance: %w", err)
	}
	if !balance.Covers(plan.TotalDays) {
		return ErrInsufficientDays.WithDetails(map[string]string{
			"requested_days": plan.TotalDays.String(),
			"remaining_days": balance.RemainingDays.String(),
		})
	}
	return nil
}

func summarize(plan *Plan) string {
	from, to := plan.Start.Format(period.DateLayout), plan.End.Format(period.DateLayout)
	switch {
	case plan.Kind == KindHalfDay:
		return fmt.Sprintf("half day (%s) on %s", *plan.Slot, from)
	case from == to:
		return fmt.Sprintf("%s leave on %s", plan.Kind, from)
	default:
		return fmt.Sprintf("%s day(s) %s leave %s to %s", plan.TotalDays.String(), plan.Kind, from, to)
	}
}
