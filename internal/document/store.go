package document

import (
	"context"
	"io"
	"time"

	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/core/events"
	"github.com/frahmantamala/approval-portal/internal/core/user"
	"github.com/frahmantamala/approval-portal/internal/leave"
)

type ListFilter struct {
	Status doc.Status
	Type   doc.Type
	Unread bool
	Limit  int
	Offset int
}

// Repository persists documents. Every state-changing write is conditional on
// the state the caller read, so a lost race surfaces as ErrAlreadyProcessed.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	// ReplaceDraft rewrites a draft in place, steps, references and links included.
	ReplaceDraft(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id int64) (*Document, error)
	// GetForUpdate loads the document under a row lock where the store supports one.
	GetForUpdate(ctx context.Context, id int64) (*Document, error)
	ListByOwner(ctx context.Context, ownerID int64, f ListFilter) ([]*Document, error)
	ListReferenced(ctx context.Context, employeeID int64, f ListFilter) ([]*Document, error)

	UpdateState(ctx context.Context, d *Document, expectStatus doc.Status, expectStep *int) error
	DecideStep(ctx context.Context, s *approval.Step) error
	ActivateSteps(ctx context.Context, steps []*approval.Step) error
	DelegateStep(ctx context.Context, s *approval.Step) error
	// MarkReferenceRead stamps read_at when it is still empty and reports whether it did.
	MarkReferenceRead(ctx context.Context, documentID, employeeID int64, at time.Time) (bool, error)

	AddAttachment(ctx context.Context, a *Attachment) error
	AppendHistory(ctx context.Context, h *HistoryEntry) error
	History(ctx context.Context, documentID int64) ([]*HistoryEntry, error)
}

// Transactor runs fn with repositories bound to one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(docs Repository, balances leave.Repository) error) error
}

type InboxItem struct {
	DocumentID  int64         `json:"document_id" db:"document_id"`
	DocType     doc.Type      `json:"doc_type" db:"doc_type"`
	Title       string        `json:"title" db:"title"`
	Summary     string        `json:"summary" db:"summary"`
	OwnerID     int64         `json:"employee_id" db:"employee_id"`
	StepID      int64         `json:"step_id" db:"step_id"`
	StepOrder   int           `json:"step_order" db:"step_order"`
	Role        approval.Role `json:"role" db:"role"`
	IsDelegated bool          `json:"is_delegated" db:"is_delegated"`
	RequestedAt *time.Time    `json:"requested_at" db:"requested_at"`
}

// InboxReader lists the steps currently waiting on an employee's decision.
type InboxReader interface {
	Inbox(ctx context.Context, employeeID int64, limit, offset int) ([]*InboxItem, error)
}

type People interface {
	Profile(ctx context.Context, id int64) (*user.Profile, error)
}

type AttachmentStore interface {
	Put(ctx context.Context, ownerID int64, fileName, contentType string, r io.Reader, size int64) (key string, err error)
	URL(ctx context.Context, key string, fileName string) (string, error)
}

type Renderer interface {
	RenderDocument(w io.Writer, d *Document, history []*HistoryEntry) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}
