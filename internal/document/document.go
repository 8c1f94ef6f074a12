package document

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/approval"
	documentDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/document"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/core/user"
)

type Document struct {
	ID           int64           `json:"id"`
	OwnerID      int64           `json:"employee_id"`
	Type         doc.Type        `json:"doc_type"`
	Title        string          `json:"title"`
	Summary      string          `json:"summary,omitempty"`
	Status       doc.Status      `json:"status"`
	CurrentStep  *int            `json:"current_step"`
	Visibility   doc.Visibility  `json:"visibility"`
	Payload      json.RawMessage `json:"payload"`
	Scope        user.Scope      `json:"owner_scope"`
	PeriodStart  *time.Time      `json:"period_start,omitempty"`
	PeriodEnd    *time.Time      `json:"period_end,omitempty"`
	StatusReason *string         `json:"status_reason,omitempty"`
	RequestedAt  *time.Time      `json:"requested_at,omitempty"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	RejectedAt   *time.Time      `json:"rejected_at,omitempty"`
	RetrievedAt  *time.Time      `json:"retrieved_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Steps       []*approval.Step `json:"steps"`
	References  []*Reference     `json:"references"`
	Links       []int64          `json:"linked_document_ids"`
	Attachments []*Attachment    `json:"attachments"`
}

// Reference is a cc entry: an employee informed of the document without acting on it.
type Reference struct {
	ID         int64      `json:"id"`
	DocumentID int64      `json:"document_id"`
	EmployeeID int64      `json:"employee_id"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

type Attachment struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"document_id"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type Action string

const (
	ActionSubmitted Action = "submitted"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionCancelled Action = "cancelled"
	ActionRetrieved Action = "retrieved"
	ActionDelegated Action = "delegated"
	ActionCompleted Action = "completed"
)

// HistoryEntry is one row of the append-only approval audit trail.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	StepID     *int64    `json:"step_id,omitempty"`
	ActorID    int64     `json:"actor_id"`
	Action     Action    `json:"action"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrDocumentNotFound  = internal.NewNotFoundError("document not found", internal.ErrCodeDocumentNotFound)
	ErrCannotView        = internal.NewForbiddenError("you cannot view this document", internal.ErrCodeCannotView)
	ErrNotOwner          = internal.NewForbiddenError("only the owner can do this", internal.ErrCodeNotOwner)
	ErrInvalidStatus     = internal.NewValidationError("the document is not in a state that allows this", internal.ErrCodeInvalidStatus)
	ErrUnknownType       = internal.NewValidationFieldError("doc_type", "unknown document type", internal.ErrCodeUnknownDocType)
	ErrInvalidVisibility = internal.NewValidationFieldError("visibility", "unknown visibility", internal.ErrCodeValidationFailed)
	ErrAlreadyProcessed  = internal.NewConflictError("the document was already processed, refresh and try again", internal.ErrCodeAlreadyDecided)
	ErrReferenceNotFound = internal.NewNotFoundError("you are not referenced on this document", internal.ErrCodeReferenceNotFound)
	ErrInvalidLink       = internal.NewValidationFieldError("linked_document_ids", "linked documents must exist and be visible to you", internal.ErrCodeValidationFailed)
	ErrSelfReference     = internal.NewValidationFieldError("references", "the owner cannot be referenced on their own document", internal.ErrCodeValidationFailed)
	ErrPrivateReferences = internal.NewValidationFieldError("references", "private documents cannot carry cc entries", internal.ErrCodePrivateReferences)
	ErrAttachmentMissing = internal.NewNotFoundError("attachment not found", internal.ErrCodeDocumentNotFound)
	ErrStorageDisabled   = internal.NewTransientError("attachment storage is not configured", nil)
)

// Viewer is the acting employee as seen by visibility checks.
type Viewer struct {
	ID    int64
	Scope user.Scope
}

func ViewerOf(p *user.Profile) Viewer {
	return Viewer{ID: p.ID, Scope: p.Scope()}
}

func (d *Document) Flow() *approval.Flow {
	return &approval.Flow{Status: d.Status, CurrentStep: d.CurrentStep, Steps: d.Steps}
}

func (d *Document) Reference(employeeID int64) *Reference {
	for _, r := range d.References {
		if r.EmployeeID == employeeID {
			return r
		}
	}
	return nil
}

// CanView decides whether v may read d.
//
// Drafts are visible to their owner only. Private documents are visible to the
// owner and to approvers or delegates whose step has been reached. Otherwise any
// approver, delegate or cc entry may read, as may anyone within the organisational
// scope the visibility names.
func CanView(v Viewer, d *Document) bool {
	if v.ID == 0 {
		return false
	}
	if d.OwnerID == v.ID {
		return true
	}
	if d.Status == doc.StatusDraft {
		return false
	}

	if d.Visibility == doc.VisibilityPrivate {
		for _, s := range d.Steps {
			if s.Involves(v.ID) && s.Status != approval.StepWaiting {
				return true
			}
		}
		return false
	}

	for _, s := range d.Steps {
		if s.Involves(v.ID) {
			return true
		}
	}
	if d.Reference(v.ID) != nil {
		return true
	}

	switch d.Visibility {
	case doc.VisibilityPublic:
		return true
	case doc.VisibilityTeam:
		return user.SameUnit(v.Scope.TeamID, d.Scope.TeamID)
	case doc.VisibilityDepartment:
		return user.SameUnit(v.Scope.DepartmentID, d.Scope.DepartmentID)
	case doc.VisibilityDivision:
		return user.SameUnit(v.Scope.DivisionID, d.Scope.DivisionID)
	}
	return false
}

// Recipients returns the acting employees of the given steps.
func Recipients(steps []*approval.Step) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, s := range steps {
		id := s.ActingID()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func ToDataModel(d *Document) *documentDatamodel.Document {
	return &documentDatamodel.Document{
		ID:                d.ID,
		EmployeeID:        d.OwnerID,
		DocType:           string(d.Type),
		Title:             d.Title,
		Summary:           d.Summary,
		Status:            string(d.Status),
		CurrentStep:       d.CurrentStep,
		Visibility:        string(d.Visibility),
		Payload:           []byte(d.Payload),
		OwnerTeamID:       d.Scope.TeamID,
		OwnerDepartmentID: d.Scope.DepartmentID,
		OwnerDivisionID:   d.Scope.DivisionID,
		PeriodStart:       d.PeriodStart,
		PeriodEnd:         d.PeriodEnd,
		StatusReason:      d.StatusReason,
		RequestedAt:       d.RequestedAt,
		ApprovedAt:        d.ApprovedAt,
		RejectedAt:        d.RejectedAt,
		RetrievedAt:       d.RetrievedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func FromDataModel(d *documentDatamodel.Document) *Document {
	return &Document{
		ID:          d.ID,
		OwnerID:     d.EmployeeID,
		Type:        doc.Type(d.DocType),
		Title:       d.Title,
		Summary:     d.Summary,
		Status:      doc.Status(d.Status),
		CurrentStep: d.CurrentStep,
		Visibility:  doc.Visibility(d.Visibility),
		Payload:     json.RawMessage(d.Payload),
		Scope: user.Scope{
			TeamID:       d.OwnerTeamID,
			DepartmentID: d.OwnerDepartmentID,
			DivisionID:   d.OwnerDivisionID,
		},
		PeriodStart:  d.PeriodStart,
		PeriodEnd:    d.PeriodEnd,
		StatusReason: d.StatusReason,
		RequestedAt:  d.RequestedAt,
		ApprovedAt:   d.ApprovedAt,
		RejectedAt:   d.RejectedAt,
		RetrievedAt:  d.RetrievedAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func StepToDataModel(documentID int64, s *approval.Step) *documentDatamodel.ApprovalStep {
	return &documentDatamodel.ApprovalStep{
		ID:           s.ID,
		DocumentID:   documentID,
		StepOrder:    s.Order,
		ApproverID:   s.ApproverID,
		ApproverName: s.ApproverName,
		Role:         string(s.Role),
		Status:       string(s.Status),
		ApprovedAt:   s.ApprovedAt,
		Comment:      s.Comment,
		IsDelegated:  s.IsDelegated,
		DelegateID:   s.DelegateID,
		DelegateName: s.DelegateName,
	}
}

func StepFromDataModel(s *documentDatamodel.ApprovalStep) *approval.Step {
	return &approval.Step{
		ID:           s.ID,
		DocumentID:   s.DocumentID,
		Order:        s.StepOrder,
		ApproverID:   s.ApproverID,
		ApproverName: s.ApproverName,
		Role:         approval.Role(s.Role),
		Status:       approval.StepStatus(s.Status),
		ApprovedAt:   s.ApprovedAt,
		Comment:      s.Comment,
		IsDelegated:  s.IsDelegated,
		DelegateID:   s.DelegateID,
		DelegateName: s.DelegateName,
	}
}

func ReferenceFromDataModel(r *documentDatamodel.Reference) *Reference {
	return &Reference{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		EmployeeID: r.EmployeeID,
		ReadAt:     r.ReadAt,
	}
}

func AttachmentToDataModel(a *Attachment) *documentDatamodel.Attachment {
	return &documentDatamodel.Attachment{
		ID:          a.ID,
		DocumentID:  a.DocumentID,
		StorageKey:  a.StorageKey,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		UploadedBy:  a.UploadedBy,
		CreatedAt:   a.CreatedAt,
	}
}

func AttachmentFromDataModel(a *documentDatamodel.Attachment) *Attachment {
	return &Attachment{
		ID:          a.ID,
		DocumentID:  a.DocumentID,
		StorageKey:  a.StorageKey,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		UploadedBy:  a.UploadedBy,
		CreatedAt:   a.CreatedAt,
	}
}

func HistoryToDataModel(h *HistoryEntry) *documentDatamodel.History {
	return &documentDatamodel.History{
		ID:         h.ID,
		DocumentID: h.DocumentID,
		StepID:     h.StepID,
		ActorID:    h.ActorID,
		Action:     string(h.Action),
		Comment:    h.Comment,
		CreatedAt:  h.CreatedAt,
	}
}

func HistoryFromDataModel(h *documentDatamodel.History) *HistoryEntry {
	return &HistoryEntry{
		ID:         h.ID,
		DocumentID: h.DocumentID,
		StepID:     h.StepID,
		ActorID:    h.ActorID,
		Action:     Action(h.Action),
		Comment:    h.Comment,
		CreatedAt:  h.CreatedAt,
	}
}
