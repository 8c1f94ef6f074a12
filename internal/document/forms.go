package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"github.com/frahmantamala/approval-portal/internal/transport"
	"github.com/shopspring/decimal"
)

// Forms maps every document type to the validator of its payload.
type Forms map[doc.Type]doc.FormValidator

// DefaultForms wires the validators of all known document types.
func DefaultForms(balances leave.Repository, calendar leave.Calendar, now func() time.Time) Forms {
	if now == nil {
		now = time.Now
	}
	return Forms{
		doc.TypeLeave:           leave.NewFormValidator(balances, calendar, false),
		doc.TypeRewardLeave:     leave.NewFormValidator(balances, calendar, true),
		doc.TypeExpense:         structForm[ExpenseForm](now),
		doc.TypeExpenseProposal: structForm[ExpenseProposalForm](now),
		doc.TypeBudget:          structForm[BudgetForm](now),
		doc.TypeWelfare:         structForm[WelfareForm](now),
		doc.TypeOvertime:        structForm[OvertimeForm](now),
		doc.TypeOvertimeReport:  structForm[OvertimeForm](now),
		doc.TypeResignation:     structForm[ResignationForm](now),
		doc.TypeGeneral:         structForm[GeneralForm](now),
	}
}

func (f Forms) Validate(ctx context.Context, in doc.FormInput) (*doc.Form, error) {
	v, ok := f[in.Type]
	if !ok {
		return nil, ErrUnknownType
	}
	if len(in.Raw) == 0 {
		in.Raw = json.RawMessage("{}")
	}
	return v.Validate(ctx, in)
}

// payloadForm is a struct-tag validated payload that can normalize itself.
type payloadForm interface {
	check(stage doc.Stage, now time.Time) error
	describe() (summary string, start, end *time.Time)
}

func structForm[T any, P interface {
	*T
	payloadForm
}](now func() time.Time) doc.FormValidator {
	return doc.FormValidatorFunc(func(ctx context.Context, in doc.FormInput) (*doc.Form, error) {
		var form T
		dec := json.NewDecoder(bytes.NewReader(in.Raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&form); err != nil {
			return nil, internal.NewValidationError(fmt.Sprintf("%s form is not valid", in.Type), internal.ErrCodeInvalidPayload).WithCause(err)
		}
		p := P(&form)

		// drafts keep whatever shape the employee has typed so far
		if in.Stage == doc.StageDraft {
			data, _ := json.Marshal(p)
			return &doc.Form{Data: data, Summary: string(in.Type) + " draft"}, nil
		}

		if err := transport.ValidateStruct(p); err != nil {
			return nil, err
		}
		if err := p.check(in.Stage, now()); err != nil {
			return nil, err
		}

		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", in.Type, err)
		}
		summary, start, end := p.describe()
		return &doc.Form{Data: data, Summary: summary, PeriodStart: start, PeriodEnd: end}, nil
	})
}

type ExpenseItem struct {
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"required,max=500"`
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`
}

type ExpenseForm struct {
	Items    []ExpenseItem   `json:"items" validate:"required,min=1,dive"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
	Total    decimal.Decimal `json:"total"`
	Note     string          `json:"note,omitempty" validate:"max=1000"`
}

func (f *ExpenseForm) check(stage doc.Stage, now time.Time) error {
	if f.Currency == "" {
		f.Currency = "IDR"
	}
	total := decimal.Zero
	for i, item := range f.Items {
		if !item.Amount.IsPositive() {
			return amountError(fmt.Sprintf("items[%d].amount", i))
		}
		d, err := period.ParseDate(item.Date)
		if err != nil {
			return internal.NewValidationFieldError(fmt.Sprintf("items[%d].date", i), err.Error(), internal.ErrCodeInvalidDate)
		}
		if d.After(period.Day(now)) {
			return internal.NewValidationFieldError(fmt.Sprintf("items[%d].date", i), "expense date cannot be in the future", internal.ErrCodeInvalidDate)
		}
		total = total.Add(item.Amount)
	}
	f.Total = total
	return nil
}

func (f *ExpenseForm) describe() (string, *time.Time, *time.Time) {
	var first, last *time.Time
	for _, item := range f.Items {
		d, _ := period.ParseDate(item.Date)
		if first == nil || d.Before(*first) {
			dd := d
			first = &dd
		}
		if last == nil || d.After(*last) {
			dd := d
			last = &dd
		}
	}
	return fmt.Sprintf("%d item(s), total %s %s", len(f.Items), f.Total.StringFixed(2), f.Currency), first, last
}

type ExpenseProposalForm struct {
	Purpose         string          `json:"purpose" validate:"required,max=1000"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	Currency        string          `json:"currency" validate:"omitempty,len=3"`
	ExpectedDate    string          `json:"expected_date" validate:"required,datetime=2006-01-02"`
	Vendor          string          `json:"vendor,omitempty" validate:"max=200"`
}

func (f *ExpenseProposalForm) check(stage doc.Stage, now time.Time) error {
	if !f.EstimatedAmount.IsPositive() {
		return amountError("estimated_amount")
	}
	if f.Currency == "" {
		f.Currency = "IDR"
	}
	return nil
}

func (f *ExpenseProposalForm) describe() (string, *time.Time, *time.Time) {
	d, _ := period.ParseDate(f.ExpectedDate)
	return fmt.Sprintf("proposal of %s %s", f.EstimatedAmount.StringFixed(2), f.Currency), &d, &d
}

type BudgetLine struct {
	Item   string          `json:"item" validate:"required,max=200"`
	Amount decimal.Decimal `json:"amount"`
}

type BudgetForm struct {
	FiscalYear    int             `json:"fiscal_year" validate:"required,gte=2000,lte=2100"`
	Lines         []BudgetLine    `json:"lines" validate:"required,min=1,dive"`
	Justification string          `json:"justification" validate:"required,max=2000"`
	Total         decimal.Decimal `json:"total"`
}

func (f *BudgetForm) check(stage doc.Stage, now time.Time) error {
	total := decimal.Zero
	for i, line := range f.Lines {
		if !line.Amount.IsPositive() {
			return amountError(fmt.Sprintf("lines[%d].amount", i))
		}
		total = total.Add(line.Amount)
	}
	f.Total = total
	return nil
}

func (f *BudgetForm) describe() (string, *time.Time, *time.Time) {
	return fmt.Sprintf("FY%d budget, total %s", f.FiscalYear, f.Total.StringFixed(2)), nil, nil
}

type WelfareForm struct {
	BenefitType string          `json:"benefit_type" validate:"required,oneof=medical wedding bereavement childbirth education other"`
	Amount      decimal.Decimal `json:"amount"`
	EventDate   string          `json:"event_date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"required,max=1000"`
}

func (f *WelfareForm) check(stage doc.Stage, now time.Time) error {
	if f.Amount.IsNegative() {
		return amountError("amount")
	}
	return nil
}

func (f *WelfareForm) describe() (string, *time.Time, *time.Time) {
	d, _ := period.ParseDate(f.EventDate)
	return fmt.Sprintf("%s welfare claim", f.BenefitType), &d, &d
}

type OvertimeForm struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	Reason      string `json:"reason" validate:"required,max=1000"`
	WorkSummary string `json:"work_summary,omitempty" validate:"max=2000"`
	Minutes     int    `json:"minutes"`
}

func (f *OvertimeForm) check(stage doc.Stage, now time.Time) error {
	start, _ := time.Parse("15:04", f.StartTime)
	end, _ := time.Parse("15:04", f.EndTime)
	minutes := int(end.Sub(start).Minutes())
	if minutes <= 0 {
		return internal.NewValidationFieldError("end_time", "overtime must end after it starts", internal.ErrCodeInvalidRange)
	}
	f.Minutes = minutes
	return nil
}

func (f *OvertimeForm) describe() (string, *time.Time, *time.Time) {
	d, _ := period.ParseDate(f.Date)
	return fmt.Sprintf("overtime %s %s-%s (%dh%02dm)", f.Date, f.StartTime, f.EndTime, f.Minutes/60, f.Minutes%60), &d, &d
}

type ResignationForm struct {
	LastWorkingDate string `json:"last_working_date" validate:"required,datetime=2006-01-02"`
	Reason          string `json:"reason" validate:"required,max=2000"`
	HandoverNote    string `json:"handover_note,omitempty" validate:"max=2000"`
}

func (f *ResignationForm) check(stage doc.Stage, now time.Time) error {
	d, _ := period.ParseDate(f.LastWorkingDate)
	if d.Before(period.Day(now)) {
		return internal.NewValidationFieldError("last_working_date", "last working date cannot be in the past", internal.ErrCodeInvalidDate)
	}
	return nil
}

func (f *ResignationForm) describe() (string, *time.Time, *time.Time) {
	d, _ := period.ParseDate(f.LastWorkingDate)
	return "resignation effective " + f.LastWorkingDate, &d, &d
}

type GeneralForm struct {
	Body string `json:"body" validate:"required,max=10000"`
}

func (f *GeneralForm) check(stage doc.Stage, now time.Time) error {
	return nil
}

func (f *GeneralForm) describe() (string, *time.Time, *time.Time) {
	summary := f.Body
	if r := []rune(summary); len(r) > 80 {
		summary = string(r[:80]) + "..."
	}
	return summary, nil, nil
}

func amountError(field string) error {
	return internal.NewValidationFieldError(field, "amount must be greater than 0", internal.ErrCodeInvalidAmount)
}
