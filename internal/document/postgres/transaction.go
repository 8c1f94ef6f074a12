package postgres

import (
	"context"

	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/frahmantamala/approval-portal/internal/leave"
	leavePostgres "github.com/frahmantamala/approval-portal/internal/leave/postgres"
	"gorm.io/gorm"
)

// TxManager runs a unit of work with document and balance repositories bound
// to the same database transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

var _ document.Transactor = (*TxManager)(nil)

func (m *TxManager) Transaction(ctx context.Context, fn func(docs document.Repository, balances leave.Repository) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewDocumentRepository(tx), leavePostgres.NewBalanceRepository(tx))
	})
}
