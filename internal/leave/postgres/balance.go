package postgres

import (
	"context"
	"errors"
	"time"

	leaveDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/leave"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceRepository implements leave.Repository using GORM. Built on a
// transaction handle it takes part in that transaction.
type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

var _ leave.Repository = (*BalanceRepository)(nil)

func (r *BalanceRepository) GetBalance(ctx context.Context, employeeID int64, year int) (*leave.Balance, error) {
	return r.find(r.db.WithContext(ctx), employeeID, year)
}

func (r *BalanceRepository) GetBalanceForUpdate(ctx context.Context, employeeID int64, year int) (*leave.Balance, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), employeeID, year)
}

func (r *BalanceRepository) find(db *gorm.DB, employeeID int64, year int) (*leave.Balance, error) {
	var row leaveDatamodel.Balance
	err := db.Where("employee_id = ? AND year = ?", employeeID, year).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leave.ErrBalanceNotFound
		}
		return nil, err
	}
	return leave.FromDataModel(&row), nil
}

func (r *BalanceRepository) CreateBalance(ctx context.Context, b *leave.Balance) error {
	row := leave.ToDataModel(b)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	b.ID = row.ID
	b.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *BalanceRepository) SaveBalance(ctx context.Context, b *leave.Balance) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&leaveDatamodel.Balance{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"total_days":     b.TotalDays,
			"used_days":      b.UsedDays,
			"remaining_days": b.RemainingDays,
			"reward_used":    b.RewardUsed,
			"updated_at":     now,
		}).Error
	if err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

func (r *BalanceRepository) ListBalances(ctx context.Context, year int) ([]*leave.Balance, error) {
	var rows []*leaveDatamodel.Balance
	err := r.db.WithContext(ctx).
		Where("year = ?", year).
		Order("employee_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return leave.FromDataModelSlice(rows), nil
}
