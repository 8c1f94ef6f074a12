package document

import (
	"encoding/json"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
)

type StepDTO struct {
	ApproverID int64         `json:"approver_id" validate:"required,gt=0"`
	Order      int           `json:"order" validate:"required,gte=1"`
	Role       approval.Role `json:"role,omitempty" validate:"omitempty,oneof=approver reviewer"`
	DelegateID *int64        `json:"delegate_id,omitempty" validate:"omitempty,gt=0"`
}

// SubmitDTO carries a new document, or a draft when saved through SaveDraft.
type SubmitDTO struct {
	Type              doc.Type        `json:"doc_type" validate:"required"`
	Title             string          `json:"title" validate:"max=200"`
	Payload           json.RawMessage `json:"payload"`
	Steps             []StepDTO       `json:"steps,omitempty" validate:"omitempty,max=20,dive"`
	References        []int64         `json:"references,omitempty" validate:"omitempty,max=50,dive,gt=0"`
	LinkedDocumentIDs []int64         `json:"linked_document_ids,omitempty" validate:"omitempty,max=20,dive,gt=0"`
	Visibility        doc.Visibility  `json:"visibility,omitempty"`
}

type DecisionDTO struct {
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

type RejectDTO struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type WithdrawDTO struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type DelegateDTO struct {
	DelegateID int64 `json:"delegate_id" validate:"required,gt=0"`
}

type BulkItem struct {
	DocumentID int64 `json:"document_id" validate:"required,gt=0"`
	StepID     int64 `json:"step_id" validate:"required,gt=0"`
}

type BulkApproveDTO struct {
	Items   []BulkItem `json:"items" validate:"required,min=1,max=50,dive"`
	Comment *string    `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// BulkResult is the outcome of one item; failures do not undo earlier successes.
type BulkResult struct {
	DocumentID int64              `json:"document_id"`
	StepID     int64              `json:"step_id"`
	OK         bool               `json:"ok"`
	Status     doc.Status         `json:"status,omitempty"`
	Error      *internal.AppError `json:"error,omitempty"`
}

type ChainProposal struct {
	DocType doc.Type        `json:"doc_type"`
	Ranks   []approval.Rank `json:"ranks"`
}
