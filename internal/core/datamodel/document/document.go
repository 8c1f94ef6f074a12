package document

import (
	"time"

	"gorm.io/datatypes"
)

type Document struct {
	ID                int64          `gorm:"primaryKey"`
	EmployeeID        int64          `gorm:"column:employee_id;not null;index"`
	DocType           string         `gorm:"column:doc_type;not null"`
	Title             string         `gorm:"column:title;not null"`
	Summary           string         `gorm:"column:summary"`
	Status            string         `gorm:"column:status;not null;index"`
	CurrentStep       *int           `gorm:"column:current_step"`
	Visibility        string         `gorm:"column:visibility;not null"`
	Payload           datatypes.JSON `gorm:"column:payload"`
	OwnerTeamID       *int64         `gorm:"column:owner_team_id"`
	OwnerDepartmentID *int64         `gorm:"column:owner_department_id"`
	OwnerDivisionID   *int64         `gorm:"column:owner_division_id"`
	PeriodStart       *time.Time     `gorm:"column:period_start;type:date"`
	PeriodEnd         *time.Time     `gorm:"column:period_end;type:date"`
	StatusReason      *string        `gorm:"column:status_reason"`
	RequestedAt       *time.Time     `gorm:"column:requested_at"`
	ApprovedAt        *time.Time     `gorm:"column:approved_at"`
	RejectedAt        *time.Time     `gorm:"column:rejected_at"`
	RetrievedAt       *time.Time     `gorm:"column:retrieved_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}

type ApprovalStep struct {
	ID           int64      `gorm:"primaryKey"`
	DocumentID   int64      `gorm:"column:document_id;not null;index"`
	StepOrder    int        `gorm:"column:step_order;not null"`
	ApproverID   int64      `gorm:"column:approver_id;not null;index"`
	ApproverName string     `gorm:"column:approver_name"`
	Role         string     `gorm:"column:role;not null"`
	Status       string     `gorm:"column:status;not null"`
	ApprovedAt   *time.Time `gorm:"column:approved_at"`
	Comment      *string    `gorm:"column:comment"`
	IsDelegated  bool       `gorm:"column:is_delegated;not null"`
	DelegateID   *int64     `gorm:"column:delegate_id;index"`
	DelegateName *string    `gorm:"column:delegate_name"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ApprovalStep) TableName() string {
	return "approval_steps"
}

type Reference struct {
	ID         int64      `gorm:"primaryKey"`
	DocumentID int64      `gorm:"column:document_id;not null;uniqueIndex:idx_document_references_pair"`
	EmployeeID int64      `gorm:"column:employee_id;not null;uniqueIndex:idx_document_references_pair"`
	ReadAt     *time.Time `gorm:"column:read_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Reference) TableName() string {
	return "document_references"
}

type Link struct {
	DocumentID       int64 `gorm:"column:document_id;primaryKey;autoIncrement:false"`
	LinkedDocumentID int64 `gorm:"column:linked_document_id;primaryKey;autoIncrement:false"`
}

func (Link) TableName() string {
	return "document_links"
}

type Attachment struct {
	ID          int64     `gorm:"primaryKey"`
	DocumentID  int64     `gorm:"column:document_id;not null;index"`
	StorageKey  string    `gorm:"column:storage_key;not null"`
	FileName    string    `gorm:"column:file_name;not null"`
	ContentType string    `gorm:"column:content_type"`
	Size        int64     `gorm:"column:size"`
	UploadedBy  int64     `gorm:"column:uploaded_by"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Attachment) TableName() string {
	return "document_attachments"
}

type History struct {
	ID         int64     `gorm:"primaryKey"`
	DocumentID int64     `gorm:"column:document_id;not null;index"`
	StepID     *int64    `gorm:"column:step_id"`
	ActorID    int64     `gorm:"column:actor_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	Comment    *string   `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (History) TableName() string {
	return "approval_history"
}
