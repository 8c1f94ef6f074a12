package postgres

import (
	"context"

	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	documentDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/document"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"gorm.io/gorm"
)

// LeaveCalendar answers leave overlap questions from filed leave documents.
type LeaveCalendar struct {
	db *gorm.DB
}

func NewLeaveCalendar(db *gorm.DB) *LeaveCalendar {
	return &LeaveCalendar{db: db}
}

var _ leave.Calendar = (*LeaveCalendar)(nil)

func (c *LeaveCalendar) ActiveLeave(ctx context.Context, employeeID int64, r period.Range) ([]period.Range, error) {
	var rows []*documentDatamodel.Document
	lastDay := r.End.AddDate(0, 0, -1)
	err := c.db.WithContext(ctx).
		Select("id", "period_start", "period_end").
		Where("employee_id = ?", employeeID).
		Where("doc_type IN ?", []doc.Type{doc.TypeLeave, doc.TypeRewardLeave}).
		Where("status IN ?", []doc.Status{doc.StatusPending, doc.StatusApproved}).
		Where("period_start IS NOT NULL AND period_end IS NOT NULL").
		Where("period_start <= ? AND period_end >= ?", period.Day(lastDay), period.Day(r.Start)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	spans := make([]period.Range, 0, len(rows))
	for _, row := range rows {
		spans = append(spans, period.DateSpan(*row.PeriodStart, *row.PeriodEnd))
	}
	return spans, nil
}
