package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	ID            int64           `gorm:"primaryKey"`
	EmployeeID    int64           `gorm:"column:employee_id;not null;uniqueIndex:idx_leave_balances_employee_year"`
	Year          int             `gorm:"column:year;not null;uniqueIndex:idx_leave_balances_employee_year"`
	TotalDays     decimal.Decimal `gorm:"column:total_days;type:numeric(5,1);not null"`
	UsedDays      decimal.Decimal `gorm:"column:used_days;type:numeric(5,1);not null"`
	RemainingDays decimal.Decimal `gorm:"column:remaining_days;type:numeric(5,1);not null"`
	RewardUsed    decimal.Decimal `gorm:"column:reward_used;type:numeric(5,1);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Balance) TableName() string {
	return "leave_balances"
}
