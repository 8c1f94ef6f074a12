package postgres

import (
	"context"

	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/jmoiron/sqlx"
)

// InboxRepository is the read side of the approval inbox, queried with sqlx.
type InboxRepository struct {
	db *sqlx.DB
}

func NewInboxRepository(db *sqlx.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

var _ document.InboxReader = (*InboxRepository)(nil)

const inboxQuery = `
SELECT d.id AS document_id, d.doc_type, d.title, d.summary, d.employee_id,
       s.id AS step_id, s.step_order, s.role, s.is_delegated, d.requested_at
FROM approval_steps s
JOIN documents d ON d.id = s.document_id
WHERE d.status = ?
  AND s.status = ?
  AND ((s.is_delegated = ? AND s.delegate_id = ?) OR (s.is_delegated = ? AND s.approver_id = ?))
ORDER BY d.requested_at ASC, d.id ASC, s.step_order ASC
LIMIT ? OFFSET ?`

func (r *InboxRepository) Inbox(ctx context.Context, employeeID int64, limit, offset int) ([]*document.InboxItem, error) {
	if limit <= 0 {
		limit = 20
	}
	items := []*document.InboxItem{}
	err := r.db.SelectContext(ctx, &items, r.db.Rebind(inboxQuery),
		doc.StatusPending, approval.StepPending,
		true, employeeID, false, employeeID,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return items, nil
}
