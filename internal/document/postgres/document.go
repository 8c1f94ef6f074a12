package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/approval-portal/internal/approval"
	documentDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/document"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/document"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository implements document.Repository using GORM. State changes
// are conditional updates; a write that matches no row reports ErrAlreadyProcessed.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ document.Repository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Create(ctx context.Context, d *document.Document) error {
	db := r.db.WithContext(ctx)
	row := document.ToDataModel(d)
	if err := db.Create(row).Error; err != nil {
		return err
	}
	d.ID = row.ID
	d.CreatedAt = row.CreatedAt
	d.UpdatedAt = row.UpdatedAt
	return r.createChildren(db, d)
}

func (r *DocumentRepository) createChildren(db *gorm.DB, d *document.Document) error {
	for _, s := range d.Steps {
		row := document.StepToDataModel(d.ID, s)
		row.ID = 0
		if err := db.Create(row).Error; err != nil {
			return err
		}
		s.ID = row.ID
		s.DocumentID = d.ID
	}
	for _, ref := range d.References {
		row := &documentDatamodel.Reference{DocumentID: d.ID, EmployeeID: ref.EmployeeID, ReadAt: ref.ReadAt}
		if err := db.Create(row).Error; err != nil {
			return err
		}
		ref.ID = row.ID
		ref.DocumentID = d.ID
	}
	for _, linked := range d.Links {
		if err := db.Create(&documentDatamodel.Link{DocumentID: d.ID, LinkedDocumentID: linked}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepository) ReplaceDraft(ctx context.Context, d *document.Document) error {
	db := r.db.WithContext(ctx)
	now := time.Now().UTC()
	res := db.Model(&documentDatamodel.Document{}).
		Where("id = ? AND status = ?", d.ID, doc.StatusDraft).
		Updates(map[string]interface{}{
			"doc_type":            string(d.Type),
			"title":               d.Title,
			"summary":             d.Summary,
			"status":              string(d.Status),
			"current_step":        d.CurrentStep,
			"visibility":          string(d.Visibility),
			"payload":             []byte(d.Payload),
			"owner_team_id":       d.Scope.TeamID,
			"owner_department_id": d.Scope.DepartmentID,
			"owner_division_id":   d.Scope.DivisionID,
			"period_start":        d.PeriodStart,
			"period_end":          d.PeriodEnd,
			"requested_at":        d.RequestedAt,
			"updated_at":          now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrAlreadyProcessed
	}
	d.UpdatedAt = now

	for _, model := range []interface{}{&documentDatamodel.ApprovalStep{}, &documentDatamodel.Reference{}, &documentDatamodel.Link{}} {
		if err := db.Where("document_id = ?", d.ID).Delete(model).Error; err != nil {
			return err
		}
	}
	return r.createChildren(db, d)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	return r.get(r.db.WithContext(ctx), id, false)
}

func (r *DocumentRepository) GetForUpdate(ctx context.Context, id int64) (*document.Document, error) {
	return r.get(r.db.WithContext(ctx), id, true)
}

func (r *DocumentRepository) get(db *gorm.DB, id int64, lock bool) (*document.Document, error) {
	q := db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row documentDatamodel.Document
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, document.ErrDocumentNotFound
		}
		return nil, err
	}
	docs, err := r.hydrate(db, []*documentDatamodel.Document{&row})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// hydrate loads the steps, references, links and attachments of rows in one query per table.
func (r *DocumentRepository) hydrate(db *gorm.DB, rows []*documentDatamodel.Document) ([]*document.Document, error) {
	docs := make([]*document.Document, 0, len(rows))
	if len(rows) == 0 {
		return docs, nil
	}
	byID := make(map[int64]*document.Document, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		d := document.FromDataModel(row)
		d.Steps = []*approval.Step{}
		d.References = []*document.Reference{}
		d.Links = []int64{}
		d.Attachments = []*document.Attachment{}
		docs = append(docs, d)
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	var steps []*documentDatamodel.ApprovalStep
	if err := db.Where("document_id IN ?", ids).Order("step_order ASC, id ASC").Find(&steps).Error; err != nil {
		return nil, err
	}
	for _, s := range steps {
		byID[s.DocumentID].Steps = append(byID[s.DocumentID].Steps, document.StepFromDataModel(s))
	}

	var refs []*documentDatamodel.Reference
	if err := db.Where("document_id IN ?", ids).Order("id ASC").Find(&refs).Error; err != nil {
		return nil, err
	}
	for _, ref := range refs {
		byID[ref.DocumentID].References = append(byID[ref.DocumentID].References, document.ReferenceFromDataModel(ref))
	}

	var links []*documentDatamodel.Link
	if err := db.Where("document_id IN ?", ids).Order("linked_document_id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, l := range links {
		byID[l.DocumentID].Links = append(byID[l.DocumentID].Links, l.LinkedDocumentID)
	}

	var attachments []*documentDatamodel.Attachment
	if err := db.Where("document_id IN ?", ids).Order("id ASC").Find(&attachments).Error; err != nil {
		return nil, err
	}
	for _, a := range attachments {
		byID[a.DocumentID].Attachments = append(byID[a.DocumentID].Attachments, document.AttachmentFromDataModel(a))
	}
	return docs, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID int64, f document.ListFilter) ([]*document.Document, error) {
	db := r.db.WithContext(ctx)
	q := applyFilter(db.Model(&documentDatamodel.Document{}).Where("employee_id = ?", ownerID), f)

	var rows []*documentDatamodel.Document
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.hydrate(db, rows)
}

func (r *DocumentRepository) ListReferenced(ctx context.Context, employeeID int64, f document.ListFilter) ([]*document.Document, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&documentDatamodel.Document{}).
		Joins("JOIN document_references ON document_references.document_id = documents.id AND document_references.employee_id = ?", employeeID).
		Where("documents.status <> ?", doc.StatusDraft)
	if f.Unread {
		q = q.Where("document_references.read_at IS NULL")
	}
	q = applyFilter(q, f)

	var rows []*documentDatamodel.Document
	if err := q.Select("documents.*").Order("documents.requested_at DESC, documents.id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.hydrate(db, rows)
}

func applyFilter(q *gorm.DB, f document.ListFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("documents.status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("documents.doc_type = ?", f.Type)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return q
}

func (r *DocumentRepository) UpdateState(ctx context.Context, d *document.Document, expectStatus doc.Status, expectStep *int) error {
	now := time.Now().UTC()
	q := r.db.WithContext(ctx).Model(&documentDatamodel.Document{}).
		Where("id = ? AND status = ?", d.ID, expectStatus)
	if expectStep == nil {
		q = q.Where("current_step IS NULL")
	} else {
		q = q.Where("current_step = ?", *expectStep)
	}

	res := q.Updates(map[string]interface{}{
		"status":        string(d.Status),
		"current_step":  d.CurrentStep,
		"status_reason": d.StatusReason,
		"approved_at":   d.ApprovedAt,
		"rejected_at":   d.RejectedAt,
		"retrieved_at":  d.RetrievedAt,
		"updated_at":    now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrAlreadyProcessed
	}
	d.UpdatedAt = now
	return nil
}

func (r *DocumentRepository) DecideStep(ctx context.Context, s *approval.Step) error {
	res := r.db.WithContext(ctx).Model(&documentDatamodel.ApprovalStep{}).
		Where("id = ? AND status = ?", s.ID, approval.StepPending).
		Updates(map[string]interface{}{
			"status":      string(s.Status),
			"approved_at": s.ApprovedAt,
			"comment":     s.Comment,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrAlreadyProcessed
	}
	return nil
}

func (r *DocumentRepository) ActivateSteps(ctx context.Context, steps []*approval.Step) error {
	db := r.db.WithContext(ctx)
	for _, s := range steps {
		res := db.Model(&documentDatamodel.ApprovalStep{}).
			Where("id = ? AND status = ?", s.ID, approval.StepWaiting).
			Updates(map[string]interface{}{
				"status":     string(approval.StepPending),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return document.ErrAlreadyProcessed
		}
	}
	return nil
}

func (r *DocumentRepository) DelegateStep(ctx context.Context, s *approval.Step) error {
	res := r.db.WithContext(ctx).Model(&documentDatamodel.ApprovalStep{}).
		Where("id = ? AND status IN ?", s.ID, []approval.StepStatus{approval.StepWaiting, approval.StepPending}).
		Updates(map[string]interface{}{
			"is_delegated":  s.IsDelegated,
			"delegate_id":   s.DelegateID,
			"delegate_name": s.DelegateName,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrAlreadyProcessed
	}
	return nil
}

func (r *DocumentRepository) MarkReferenceRead(ctx context.Context, documentID, employeeID int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&documentDatamodel.Reference{}).
		Where("document_id = ? AND employee_id = ? AND read_at IS NULL", documentID, employeeID).
		Update("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DocumentRepository) AddAttachment(ctx context.Context, a *document.Attachment) error {
	row := document.AttachmentToDataModel(a)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	a.ID = row.ID
	a.CreatedAt = row.CreatedAt
	return nil
}

func (r *DocumentRepository) AppendHistory(ctx context.Context, h *document.HistoryEntry) error {
	row := document.HistoryToDataModel(h)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	h.ID = row.ID
	return nil
}

func (r *DocumentRepository) History(ctx context.Context, documentID int64) ([]*document.HistoryEntry, error) {
	var rows []*documentDatamodel.History
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	history := make([]*document.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		history = append(history, document.HistoryFromDataModel(row))
	}
	return history, nil
}
