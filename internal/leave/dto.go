package leave

import (
	"github.com/shopspring/decimal"
)

type QuoteDTO struct {
	StartDate string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string    `json:"end_date" validate:"required,datetime=2006-01-02"`
	Days      Selection `json:"days,omitempty"`
	Reward    bool      `json:"reward"`
}

func (dto QuoteDTO) Request() Request {
	return Request{StartDate: dto.StartDate, EndDate: dto.EndDate, Days: dto.Days}
}

type QuoteResult struct {
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	Days          Selection        `json:"days"`
	TotalDays     decimal.Decimal  `json:"total_days"`
	LeaveType     Kind             `json:"leave_type"`
	Slot          *Slot            `json:"half_day_slot,omitempty"`
	RemainingDays *decimal.Decimal `json:"remaining_days,omitempty"`
	Covered       *bool            `json:"covered,omitempty"`
	Overlaps      bool             `json:"overlaps_existing_leave"`
}

type GrantDTO struct {
	Year int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Days float64 `json:"days" validate:"required,gt=0,lte=366"`
}
