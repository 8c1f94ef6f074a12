package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/common/retry"
	"github.com/frahmantamala/approval-portal/internal/core/common/validation"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/core/events"
	"github.com/frahmantamala/approval-portal/internal/leave"
)

type Dependencies struct {
	Repo      Repository
	Tx        Transactor
	Inbox     InboxReader
	Forms     doc.FormValidator
	Builder   *approval.Builder
	Machine   *approval.Machine
	People    People
	Store     AttachmentStore
	Renderer  Renderer
	Publisher Publisher
	Retry     retry.Policy
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Service orchestrates submission, approval and reading of documents.
type Service struct {
	repo      Repository
	tx        Transactor
	inbox     InboxReader
	forms     doc.FormValidator
	builder   *approval.Builder
	machine   *approval.Machine
	people    People
	store     AttachmentStore
	renderer  Renderer
	publisher Publisher
	retry     retry.Policy
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		inbox:     deps.Inbox,
		forms:     deps.Forms,
		builder:   deps.Builder,
		machine:   deps.Machine,
		people:    deps.People,
		store:     deps.Store,
		renderer:  deps.Renderer,
		publisher: deps.Publisher,
		retry:     deps.Retry,
		now:       deps.Clock,
		logger:    deps.Logger,
	}
	if s.machine == nil {
		s.machine = approval.NewMachine(approval.Options{})
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = retry.DefaultPolicy()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Submit validates and files a new document and opens its first approval rank.
func (s *Service) Submit(ctx context.Context, v Viewer, dto SubmitDTO) (*Document, error) {
	d, err := s.assemble(ctx, v, dto, doc.StageSubmission)
	if err != nil {
		s.logger.Warn("document submission rejected", "error", err, "employee_id", v.ID, "doc_type", dto.Type)
		return nil, err
	}

	now := s.clock()
	if err := s.start(d, now); err != nil {
		return nil, err
	}

	err = s.transact(ctx, "submit", func(docs Repository, _ leave.Repository) error {
		if err := docs.Create(ctx, d); err != nil {
			return err
		}
		return docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, ActorID: v.ID, Action: ActionSubmitted, CreatedAt: now})
	})
	if err != nil {
		s.logger.Error("failed to persist document", "error", err, "employee_id", v.ID, "doc_type", d.Type)
		return nil, err
	}

	s.logger.Info("document submitted",
		"document_id", d.ID,
		"employee_id", v.ID,
		"doc_type", d.Type,
		"steps", len(d.Steps))

	s.announceStart(ctx, d, v.ID)
	return d, nil
}

// SaveDraft creates a draft or rewrites the owner's existing one.
func (s *Service) SaveDraft(ctx context.Context, v Viewer, draftID *int64, dto SubmitDTO) (*Document, error) {
	d, err := s.assemble(ctx, v, dto, doc.StageDraft)
	if err != nil {
		return nil, err
	}

	if draftID == nil {
		err = s.transact(ctx, "save draft", func(docs Repository, _ leave.Repository) error {
			return docs.Create(ctx, d)
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("draft created", "document_id", d.ID, "employee_id", v.ID)
		return d, nil
	}

	err = s.transact(ctx, "save draft", func(docs Repository, _ leave.Repository) error {
		existing, err := s.ownedDraft(ctx, docs, v, *draftID)
		if err != nil {
			return err
		}
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
		d.Attachments = existing.Attachments
		return docs.ReplaceDraft(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SubmitDraft runs the submission checks over a saved draft and files it.
func (s *Service) SubmitDraft(ctx context.Context, v Viewer, draftID int64) (*Document, error) {
	draft, err := s.repo.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := checkDraftOwner(v, draft); err != nil {
		return nil, err
	}

	dto := SubmitDTO{
		Type:              draft.Type,
		Title:             draft.Title,
		Payload:           draft.Payload,
		References:        make([]int64, 0, len(draft.References)),
		LinkedDocumentIDs: draft.Links,
		Visibility:        draft.Visibility,
	}
	for _, st := range draft.Steps {
		dto.Steps = append(dto.Steps, StepDTO{ApproverID: st.ApproverID, Order: st.Order, Role: st.Role, DelegateID: st.DelegateID})
	}
	for _, r := range draft.References {
		dto.References = append(dto.References, r.EmployeeID)
	}

	d, err := s.assemble(ctx, v, dto, doc.StageSubmission)
	if err != nil {
		s.logger.Warn("draft submission rejected", "error", err, "document_id", draftID, "employee_id", v.ID)
		return nil, err
	}
	now := s.clock()
	if err := s.start(d, now); err != nil {
		return nil, err
	}
	d.ID = draft.ID
	d.CreatedAt = draft.CreatedAt
	d.Attachments = draft.Attachments

	// ReplaceDraft only matches while the row is still a draft
	err = s.transact(ctx, "submit draft", func(docs Repository, _ leave.Repository) error {
		if err := docs.ReplaceDraft(ctx, d); err != nil {
			return err
		}
		return docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, ActorID: v.ID, Action: ActionSubmitted, CreatedAt: now})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft submitted", "document_id", d.ID, "employee_id", v.ID, "doc_type", d.Type)
	s.announceStart(ctx, d, v.ID)
	return d, nil
}

func (s *Service) ownedDraft(ctx context.Context, docs Repository, v Viewer, id int64) (*Document, error) {
	d, err := docs.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkDraftOwner(v, d); err != nil {
		return nil, err
	}
	return d, nil
}

func checkDraftOwner(v Viewer, d *Document) error {
	if d.OwnerID != v.ID {
		return ErrNotOwner
	}
	if d.Status != doc.StatusDraft {
		return ErrInvalidStatus.WithMessage("only drafts can be edited")
	}
	return nil
}

// assemble validates everything a document carries and builds it in draft state.
func (s *Service) assemble(ctx context.Context, v Viewer, dto SubmitDTO, stage doc.Stage) (*Document, error) {
	if !dto.Type.Valid() {
		return nil, ErrUnknownType
	}
	title := strings.TrimSpace(dto.Title)
	if stage == doc.StageSubmission {
		if err := validation.ValidateTitle(title); err != nil {
			return nil, err
		}
	}
	if dto.Visibility != "" && !dto.Visibility.Valid() {
		return nil, ErrInvalidVisibility
	}

	form, err := s.forms.Validate(ctx, doc.FormInput{
		OwnerID: v.ID,
		Type:    dto.Type,
		Raw:     dto.Payload,
		Stage:   stage,
	})
	if err != nil {
		return nil, err
	}

	chain, err := s.chainFor(ctx, v, dto)
	if err != nil {
		return nil, err
	}
	if stage == doc.StageSubmission {
		if err := chain.Validate(); err != nil {
			return nil, err
		}
	}

	visibility := doc.Effective(dto.Type, dto.Visibility)
	if visibility == doc.VisibilityPrivate && len(dto.References) > 0 {
		return nil, ErrPrivateReferences
	}
	refs, err := s.references(ctx, v, dto.References)
	if err != nil {
		return nil, err
	}
	links, err := s.links(ctx, v, dto.LinkedDocumentIDs)
	if err != nil {
		return nil, err
	}

	steps := chain.Steps()
	for _, st := range steps {
		// chain-local ids are reassigned by the store
		st.ID = 0
	}

	return &Document{
		OwnerID:     v.ID,
		Type:        dto.Type,
		Title:       title,
		Summary:     form.Summary,
		Status:      doc.StatusDraft,
		Visibility:  visibility,
		Payload:     form.Data,
		Scope:       v.Scope,
		PeriodStart: form.PeriodStart,
		PeriodEnd:   form.PeriodEnd,
		Steps:       steps,
		References:  refs,
		Links:       links,
	}, nil
}

// chainFor builds the requested chain, or the policy default when none is given.
func (s *Service) chainFor(ctx context.Context, v Viewer, dto SubmitDTO) (*approval.Chain, error) {
	if len(dto.Steps) == 0 {
		if s.builder == nil {
			return approval.NewChain(), nil
		}
		return s.builder.DefaultChain(ctx, dto.Type, v.ID)
	}

	chain := approval.NewChain()
	for i, st := range dto.Steps {
		if st.ApproverID == v.ID {
			return nil, internal.NewValidationFieldError(fmt.Sprintf("steps[%d].approver_id", i), "you cannot approve your own document", internal.ErrCodeInvalidStep)
		}
		name, err := s.employeeName(ctx, st.ApproverID, fmt.Sprintf("steps[%d].approver_id", i))
		if err != nil {
			return nil, err
		}
		step, err := chain.AddStep(st.ApproverID, name, st.Order, st.Role)
		if err != nil {
			return nil, err
		}
		if st.DelegateID != nil {
			delegateName, err := s.employeeName(ctx, *st.DelegateID, fmt.Sprintf("steps[%d].delegate_id", i))
			if err != nil {
				return nil, err
			}
			if err := chain.Delegate(step.ID, *st.DelegateID, delegateName); err != nil {
				return nil, err
			}
		}
	}
	return chain, nil
}

func (s *Service) employeeName(ctx context.Context, id int64, field string) (string, error) {
	if s.people == nil {
		return "", nil
	}
	p, err := s.people.Profile(ctx, id)
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeNotFound) {
			return "", internal.NewValidationFieldError(field, "employee does not exist", internal.ErrCodeEmployeeNotFound)
		}
		return "", err
	}
	if !p.IsActive {
		return "", internal.NewValidationFieldError(field, "employee is not active", internal.ErrCodeEmployeeNotFound)
	}
	return p.Name, nil
}

func (s *Service) references(ctx context.Context, v Viewer, ids []int64) ([]*Reference, error) {
	seen := map[int64]bool{}
	var refs []*Reference
	for i, id := range ids {
		if id == v.ID {
			return nil, ErrSelfReference
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.employeeName(ctx, id, fmt.Sprintf("references[%d]", i)); err != nil {
			return nil, err
		}
		refs = append(refs, &Reference{EmployeeID: id})
	}
	return refs, nil
}

func (s *Service) links(ctx context.Context, v Viewer, ids []int64) ([]int64, error) {
	seen := map[int64]bool{}
	var links []int64
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		linked, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				return nil, ErrInvalidLink
			}
			return nil, err
		}
		if !CanView(v, linked) {
			return nil, ErrInvalidLink
		}
		links = append(links, id)
	}
	return links, nil
}

// start opens the first rank and copies the resulting state back onto d.
func (s *Service) start(d *Document, now time.Time) error {
	flow := d.Flow()
	if _, err := s.machine.Start(flow); err != nil {
		return err
	}
	d.Status = flow.Status
	d.CurrentStep = flow.CurrentStep
	d.RequestedAt = &now
	return nil
}

// Approve records actorID's approval of one step and advances or completes the chain.
func (s *Service) Approve(ctx context.Context, v Viewer, documentID, stepID int64, comment *string) (*Document, error) {
	var (
		result *Document
		t      *approval.Transition
	)
	err := s.transact(ctx, "approve", func(docs Repository, balances leave.Repository) error {
		d, err := docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		prevStatus, prevStep := d.Status, d.CurrentStep
		now := s.clock()

		flow := d.Flow()
		t, err = s.machine.Approve(flow, stepID, v.ID, comment, now)
		if err != nil {
			return err
		}
		if err := docs.DecideStep(ctx, t.Step); err != nil {
			return err
		}
		if err := docs.ActivateSteps(ctx, t.Promoted); err != nil {
			return err
		}

		d.Status, d.CurrentStep = flow.Status, flow.CurrentStep
		if t.Completed() {
			d.ApprovedAt = &now
		}
		if err := docs.UpdateState(ctx, d, prevStatus, prevStep); err != nil {
			return err
		}

		if t.Completed() && d.Type.IsLeave() {
			if err := s.adjustLeave(ctx, balances, d, true); err != nil {
				return err
			}
		}

		stepID := t.Step.ID
		if err := docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, StepID: &stepID, ActorID: v.ID, Action: ActionApproved, Comment: comment, CreatedAt: now}); err != nil {
			return err
		}
		if t.Completed() {
			if err := docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, ActorID: v.ID, Action: ActionCompleted, CreatedAt: now}); err != nil {
				return err
			}
		}
		result = d
		return nil
	})
	if err != nil {
		s.logDecisionFailure("approve", err, documentID, stepID, v.ID)
		return nil, err
	}

	s.logger.Info("approval step approved",
		"document_id", documentID,
		"step_id", stepID,
		"actor_id", v.ID,
		"status", result.Status,
		"current_step", result.CurrentStep)

	switch {
	case t.Completed():
		s.publish(ctx, events.NewDocumentEvent(events.EventTypeDocumentApproved, result.ID, string(result.Type), result.Title, result.OwnerID, v.ID, string(result.Status), []int64{result.OwnerID}, ""))
	case len(t.Promoted) > 0:
		s.publish(ctx, events.NewDocumentEvent(events.EventTypeStepActivated, result.ID, string(result.Type), result.Title, result.OwnerID, v.ID, string(result.Status), Recipients(t.Promoted), ""))
	}
	return result, nil
}

// Reject records a rejection; an approver rejection ends the document.
func (s *Service) Reject(ctx context.Context, v Viewer, documentID, stepID int64, reason string) (*Document, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	var (
		result *Document
		t      *approval.Transition
	)
	err := s.transact(ctx, "reject", func(docs Repository, _ leave.Repository) error {
		d, err := docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		prevStatus, prevStep := d.Status, d.CurrentStep
		now := s.clock()

		flow := d.Flow()
		t, err = s.machine.Reject(flow, stepID, v.ID, reason, now)
		if err != nil {
			return err
		}
		if err := docs.DecideStep(ctx, t.Step); err != nil {
			return err
		}

		if t.Terminated() {
			d.Status, d.CurrentStep = flow.Status, flow.CurrentStep
			d.RejectedAt = &now
			d.StatusReason = &reason
			if err := docs.UpdateState(ctx, d, prevStatus, prevStep); err != nil {
				return err
			}
		}

		stepID := t.Step.ID
		if err := docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, StepID: &stepID, ActorID: v.ID, Action: ActionRejected, Comment: &reason, CreatedAt: now}); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		s.logDecisionFailure("reject", err, documentID, stepID, v.ID)
		return nil, err
	}

	s.logger.Info("approval step rejected",
		"document_id", documentID,
		"step_id", stepID,
		"actor_id", v.ID,
		"terminated", t.Terminated())

	eventType := events.EventTypeDocumentRejected
	if !t.Terminated() {
		// advisory reviewer objection; the chain keeps going
		eventType = events.EventTypeStepRejected
	}
	s.publish(ctx, events.NewDocumentEvent(eventType, result.ID, string(result.Type), result.Title, result.OwnerID, v.ID, string(result.Status), []int64{result.OwnerID}, reason))
	return result, nil
}

// Withdraw lets the owner cancel a pending document or recall an approved leave.
// Recalling an approved leave gives its days back.
func (s *Service) Withdraw(ctx context.Context, v Viewer, documentID int64, reason string) (*Document, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}
	var result *Document
	err := s.transact(ctx, "withdraw", func(docs Repository, balances leave.Repository) error {
		d, err := docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if d.OwnerID != v.ID {
			return ErrNotOwner
		}
		prevStatus, prevStep := d.Status, d.CurrentStep
		now := s.clock()

		action := ActionCancelled
		switch {
		case d.Status == doc.StatusPending:
			d.Status = doc.StatusCancelled
		case d.Status == doc.StatusApproved && d.Type.IsLeave():
			d.Status = doc.StatusRetrieved
			action = ActionRetrieved
		default:
			return ErrInvalidStatus.WithMessage(fmt.Sprintf("a %s document cannot be withdrawn", d.Status))
		}
		d.CurrentStep = nil
		d.RetrievedAt = &now
		d.StatusReason = &reason

		if err := docs.UpdateState(ctx, d, prevStatus, prevStep); err != nil {
			return err
		}
		if action == ActionRetrieved {
			if err := s.adjustLeave(ctx, balances, d, false); err != nil {
				return err
			}
		}

		var comment *string
		if reason != "" {
			comment = &reason
		}
		if err := docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, ActorID: v.ID, Action: action, Comment: comment, CreatedAt: now}); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		s.logger.Warn("withdraw failed", "error", err, "document_id", documentID, "employee_id", v.ID)
		return nil, err
	}

	s.logger.Info("document withdrawn", "document_id", documentID, "employee_id", v.ID, "status", result.Status)

	eventType := events.EventTypeDocumentCancelled
	if result.Status == doc.StatusRetrieved {
		eventType = events.EventTypeDocumentRetrieved
	}
	var involved []*approval.Step
	for _, st := range result.Steps {
		if st.Status != approval.StepWaiting {
			involved = append(involved, st)
		}
	}
	s.publish(ctx, events.NewDocumentEvent(eventType, result.ID, string(result.Type), result.Title, result.OwnerID, v.ID, string(result.Status), Recipients(involved), reason))
	return result, nil
}

func (s *Service) adjustLeave(ctx context.Context, balances leave.Repository, d *Document, consume bool) error {
	plan, err := leave.PlanFromPayload(d.Payload, d.Type == doc.TypeRewardLeave)
	if err != nil {
		return internal.NewIntegrityError("stored leave payload is unreadable", internal.ErrCodeInvalidPayload).WithCause(err)
	}
	ledger := leave.NewLedger(balances)
	var b *leave.Balance
	if consume {
		b, err = ledger.Consume(ctx, d.OwnerID, plan)
	} else {
		b, err = ledger.Refund(ctx, d.OwnerID, plan)
	}
	if err != nil {
		s.logger.Error("leave ledger adjustment failed", "error", err, "document_id", d.ID, "employee_id", d.OwnerID, "consume", consume)
		return err
	}
	s.logger.Info("leave ledger adjusted",
		"document_id", d.ID,
		"employee_id", d.OwnerID,
		"days", plan.TotalDays.String(),
		"consume", consume,
		"remaining_days", b.RemainingDays.String())
	return nil
}

// BulkApprove approves each item in its own transaction and reports per item.
func (s *Service) BulkApprove(ctx context.Context, v Viewer, items []BulkItem, comment *string) []BulkResult {
	results := make([]BulkResult, 0, len(items))
	for _, item := range items {
		res := BulkResult{DocumentID: item.DocumentID, StepID: item.StepID}
		d, err := s.Approve(ctx, v, item.DocumentID, item.StepID, comment)
		if err != nil {
			appErr, ok := internal.IsAppError(err)
			if !ok {
				appErr = internal.NewInternalError("approval failed", err)
			}
			res.Error = appErr
		} else {
			res.OK = true
			res.Status = d.Status
		}
		results = append(results, res)
	}
	return results
}

// Delegate lets the nominal approver of an undecided step hand it to someone else.
func (s *Service) Delegate(ctx context.Context, v Viewer, documentID, stepID, delegateID int64) (*Document, error) {
	name, err := s.employeeName(ctx, delegateID, "delegate_id")
	if err != nil {
		return nil, err
	}

	var (
		result *Document
		step   *approval.Step
	)
	err = s.transact(ctx, "delegate", func(docs Repository, _ leave.Repository) error {
		d, err := docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		step, err = s.machine.Redelegate(d.Flow(), stepID, v.ID, delegateID, name)
		if err != nil {
			return err
		}
		if err := docs.DelegateStep(ctx, step); err != nil {
			return err
		}
		comment := fmt.Sprintf("delegated to %d", delegateID)
		if err := docs.AppendHistory(ctx, &HistoryEntry{DocumentID: d.ID, StepID: &step.ID, ActorID: v.ID, Action: ActionDelegated, Comment: &comment, CreatedAt: s.clock()}); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("approval step delegated", "document_id", documentID, "step_id", stepID, "approver_id", v.ID, "delegate_id", delegateID)
	s.publish(ctx, events.NewDocumentEvent(events.EventTypeStepDelegated, result.ID, string(result.Type), result.Title, result.OwnerID, v.ID, string(result.Status), []int64{delegateID}, ""))
	return result, nil
}

// CanView reports whether v may read the document.
func (s *Service) CanView(ctx context.Context, v Viewer, documentID int64) (bool, error) {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return false, err
	}
	return CanView(v, d), nil
}

// Get returns a document the viewer may see; a cc entry is marked read on first view.
func (s *Service) Get(ctx context.Context, v Viewer, documentID int64) (*Document, error) {
	d, err := s.viewable(ctx, v, documentID)
	if err != nil {
		return nil, err
	}
	if ref := d.Reference(v.ID); ref != nil && ref.ReadAt == nil {
		if _, err := s.markRead(ctx, d, ref); err != nil {
			s.logger.Warn("failed to mark reference read", "error", err, "document_id", documentID, "employee_id", v.ID)
		}
	}
	return d, nil
}

// MarkReferenceRead stamps the viewer's cc entry once; later calls change nothing.
func (s *Service) MarkReferenceRead(ctx context.Context, v Viewer, documentID int64) (*Reference, error) {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	ref := d.Reference(v.ID)
	if ref == nil || !CanView(v, d) {
		return nil, ErrReferenceNotFound
	}
	return s.markRead(ctx, d, ref)
}

func (s *Service) markRead(ctx context.Context, d *Document, ref *Reference) (*Reference, error) {
	if ref.ReadAt != nil {
		return ref, nil
	}
	now := s.clock()
	changed, err := s.repo.MarkReferenceRead(ctx, d.ID, ref.EmployeeID, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		// a concurrent view got there first
		fresh, err := s.repo.GetByID(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if r := fresh.Reference(ref.EmployeeID); r != nil {
			*ref = *r
		}
		return ref, nil
	}
	ref.ReadAt = &now
	return ref, nil
}

// GetLinked returns the linked documents the viewer may see in their own right.
func (s *Service) GetLinked(ctx context.Context, v Viewer, documentID int64) ([]*Document, error) {
	parent, err := s.viewable(ctx, v, documentID)
	if err != nil {
		return nil, err
	}
	linked := make([]*Document, 0, len(parent.Links))
	for _, id := range parent.Links {
		d, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if CanView(v, d) {
			linked = append(linked, d)
		}
	}
	return linked, nil
}

func (s *Service) viewable(ctx context.Context, v Viewer, documentID int64) (*Document, error) {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !CanView(v, d) {
		s.logger.Warn("document view denied", "document_id", documentID, "employee_id", v.ID)
		return nil, ErrCannotView
	}
	return d, nil
}

func (s *Service) ListMine(ctx context.Context, v Viewer, f ListFilter) ([]*Document, error) {
	return s.repo.ListByOwner(ctx, v.ID, f)
}

func (s *Service) ListReferences(ctx context.Context, v Viewer, f ListFilter) ([]*Document, error) {
	docs, err := s.repo.ListReferenced(ctx, v.ID, f)
	if err != nil {
		return nil, err
	}
	// rows written before private documents refused cc entries stay hidden
	visible := docs[:0]
	for _, d := range docs {
		if CanView(v, d) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

func (s *Service) ListInbox(ctx context.Context, v Viewer, limit, offset int) ([]*InboxItem, error) {
	items, err := s.inbox.Inbox(ctx, v.ID, limit, offset)
	if err != nil {
		s.logger.Error("failed to load inbox", "error", err, "employee_id", v.ID)
		return nil, err
	}
	return items, nil
}

func (s *Service) History(ctx context.Context, v Viewer, documentID int64) ([]*HistoryEntry, error) {
	if _, err := s.viewable(ctx, v, documentID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, documentID)
}

// ProposeChain returns the policy default chain so the employee can edit it before submitting.
func (s *Service) ProposeChain(ctx context.Context, v Viewer, docType doc.Type) (*ChainProposal, error) {
	if !docType.Valid() {
		return nil, ErrUnknownType
	}
	chain, err := s.builder.DefaultChain(ctx, docType, v.ID)
	if err != nil {
		return nil, err
	}
	return &ChainProposal{DocType: docType, Ranks: chain.Ranks()}, nil
}

// AddAttachment stores a file against a document the owner can still change.
func (s *Service) AddAttachment(ctx context.Context, v Viewer, documentID int64, fileName, contentType string, size int64, r io.Reader) (*Attachment, error) {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != v.ID {
		return nil, ErrNotOwner
	}
	if d.Status != doc.StatusDraft && d.Status != doc.StatusPending {
		return nil, ErrInvalidStatus.WithMessage("attachments can only be added to drafts or pending documents")
	}
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	key, err := s.store.Put(ctx, v.ID, fileName, contentType, r, size)
	if err != nil {
		return nil, err
	}
	a := &Attachment{
		DocumentID:  d.ID,
		StorageKey:  key,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  v.ID,
		CreatedAt:   s.clock(),
	}
	if err := s.repo.AddAttachment(ctx, a); err != nil {
		s.logger.Error("failed to record attachment", "error", err, "document_id", d.ID, "storage_key", key)
		return nil, err
	}
	s.logger.Info("attachment stored", "document_id", d.ID, "attachment_id", a.ID, "size", size)
	return a, nil
}

// AttachmentURL returns a short-lived download link for a viewer of the document.
func (s *Service) AttachmentURL(ctx context.Context, v Viewer, documentID, attachmentID int64) (string, error) {
	d, err := s.viewable(ctx, v, documentID)
	if err != nil {
		return "", err
	}
	for _, a := range d.Attachments {
		if a.ID == attachmentID {
			if s.store == nil {
				return "", ErrStorageDisabled
			}
			return s.store.URL(ctx, a.StorageKey, a.FileName)
		}
	}
	return "", ErrAttachmentMissing
}

// Export renders the document with its approval trail.
func (s *Service) Export(ctx context.Context, v Viewer, documentID int64, w io.Writer) (*Document, error) {
	d, err := s.viewable(ctx, v, documentID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.renderer.RenderDocument(w, d, history); err != nil {
		return nil, fmt.Errorf("render document %d: %w", documentID, err)
	}
	return d, nil
}

// transact runs fn in a transaction, retrying transient store failures.
func (s *Service) transact(ctx context.Context, op string, fn func(docs Repository, balances leave.Repository) error) error {
	return retry.Do(ctx, s.retry, s.logger, op, func(ctx context.Context) error {
		return s.tx.Transaction(ctx, fn)
	})
}

func (s *Service) announceStart(ctx context.Context, d *Document, actorID int64) {
	var pending []*approval.Step
	for _, st := range d.Steps {
		if st.Status == approval.StepPending {
			pending = append(pending, st)
		}
	}
	s.publish(ctx, events.NewDocumentEvent(events.EventTypeDocumentSubmitted, d.ID, string(d.Type), d.Title, d.OwnerID, actorID, string(d.Status), Recipients(pending), ""))
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "error", err, "event_type", e.EventType())
	}
}

func (s *Service) logDecisionFailure(op string, err error, documentID, stepID, actorID int64) {
	switch {
	case internal.IsType(err, internal.ErrorTypeIntegrity), internal.IsType(err, internal.ErrorTypeInternal):
		s.logger.Error(op+" failed", "error", err, "document_id", documentID, "step_id", stepID, "actor_id", actorID)
	default:
		s.logger.Warn(op+" refused", "error", err, "document_id", documentID, "step_id", stepID, "actor_id", actorID)
	}
}
