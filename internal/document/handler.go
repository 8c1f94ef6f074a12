package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/auth"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/transport"
	"github.com/frahmantamala/approval-portal/pkg/logger"
)

// maxUploadSize bounds a single attachment upload.
const maxUploadSize = 20 << 20

type ServiceAPI interface {
	Submit(ctx context.Context, v Viewer, dto SubmitDTO) (*Document, error)
	SaveDraft(ctx context.Context, v Viewer, draftID *int64, dto SubmitDTO) (*Document, error)
	SubmitDraft(ctx context.Context, v Viewer, draftID int64) (*Document, error)
	Approve(ctx context.Context, v Viewer, documentID, stepID int64, comment *string) (*Document, error)
	Reject(ctx context.Context, v Viewer, documentID, stepID int64, reason string) (*Document, error)
	Withdraw(ctx context.Context, v Viewer, documentID int64, reason string) (*Document, error)
	BulkApprove(ctx context.Context, v Viewer, items []BulkItem, comment *string) []BulkResult
	Delegate(ctx context.Context, v Viewer, documentID, stepID, delegateID int64) (*Document, error)
	Get(ctx context.Context, v Viewer, documentID int64) (*Document, error)
	GetLinked(ctx context.Context, v Viewer, documentID int64) ([]*Document, error)
	MarkReferenceRead(ctx context.Context, v Viewer, documentID int64) (*Reference, error)
	ListMine(ctx context.Context, v Viewer, f ListFilter) ([]*Document, error)
	ListReferences(ctx context.Context, v Viewer, f ListFilter) ([]*Document, error)
	ListInbox(ctx context.Context, v Viewer, limit, offset int) ([]*InboxItem, error)
	History(ctx context.Context, v Viewer, documentID int64) ([]*HistoryEntry, error)
	ProposeChain(ctx context.Context, v Viewer, docType doc.Type) (*ChainProposal, error)
	AddAttachment(ctx context.Context, v Viewer, documentID int64, fileName, contentType string, size int64, r io.Reader) (*Attachment, error)
	AttachmentURL(ctx context.Context, v Viewer, documentID, attachmentID int64) (string, error)
	Export(ctx context.Context, v Viewer, documentID int64, w io.Writer) (*Document, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) viewer(w http.ResponseWriter, r *http.Request, op string) (Viewer, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error(op + ": user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return Viewer{}, false
	}
	return Viewer{ID: user.ID, Scope: user.Scope()}, true
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Submit")
	if !ok {
		return
	}

	var dto SubmitDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Submit(r.Context(), v, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("Submit: document submitted", "document_id", d.ID, "employee_id", v.ID, "doc_type", d.Type)
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "CreateDraft")
	if !ok {
		return
	}

	var dto SubmitDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.SaveDraft(r.Context(), v, nil, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "UpdateDraft")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto SubmitDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.SaveDraft(r.Context(), v, &id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "SubmitDraft")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.SubmitDraft(r.Context(), v, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Get")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Get(r.Context(), v, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) GetLinked(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "GetLinked")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	docs, err := h.Service.GetLinked(r.Context(), v, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "History")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	history, err := h.Service.History(r.Context(), v, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "ListMine")
	if !ok {
		return
	}
	f := h.filter(r)

	docs, err := h.Service.ListMine(r.Context(), v, f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"limit":     f.Limit,
		"offset":    f.Offset,
	})
}

func (h *Handler) ListReferences(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "ListReferences")
	if !ok {
		return
	}
	f := h.filter(r)
	f.Unread = r.URL.Query().Get("unread") == "true"

	docs, err := h.Service.ListReferences(r.Context(), v, f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"limit":     f.Limit,
		"offset":    f.Offset,
	})
}

func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Inbox")
	if !ok {
		return
	}
	limit, offset := h.Pagination(r)

	items, err := h.Service.ListInbox(r.Context(), v, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Approve")
	if !ok {
		return
	}
	id, stepID, err := h.stepPath(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto DecisionDTO
	if r.ContentLength > 0 {
		if err := h.DecodeAndValidate(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	d, err := h.Service.Approve(r.Context(), v, id, stepID, dto.Comment)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Reject")
	if !ok {
		return
	}
	id, stepID, err := h.stepPath(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto RejectDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Reject(r.Context(), v, id, stepID, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) Delegate(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Delegate")
	if !ok {
		return
	}
	id, stepID, err := h.stepPath(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto DelegateDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Delegate(r.Context(), v, id, stepID, dto.DelegateID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Withdraw")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto WithdrawDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Withdraw(r.Context(), v, id, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "BulkApprove")
	if !ok {
		return
	}

	var dto BulkApproveDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	results := h.Service.BulkApprove(r.Context(), v, dto.Items, dto.Comment)
	succeeded := 0
	for _, res := range results {
		if res.OK {
			succeeded++
		}
	}

	h.Logger.Info("BulkApprove: batch processed", "employee_id", v.ID, "items", len(results), "succeeded", succeeded)
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "MarkRead")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	ref, err := h.Service.MarkReferenceRead(r.Context(), v, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ref)
}

func (h *Handler) ProposeChain(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "ProposeChain")
	if !ok {
		return
	}

	proposal, err := h.Service.ProposeChain(r.Context(), v, doc.Type(r.URL.Query().Get("doc_type")))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, proposal)
}

func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "UploadAttachment")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.HandleServiceError(w, internal.NewValidationFieldError("file", "upload must be multipart and at most 20MB", internal.ErrCodeAttachmentRejected).WithCause(err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.HandleServiceError(w, internal.NewValidationFieldError("file", "file is required", internal.ErrCodeAttachmentRejected))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a, err := h.Service.AddAttachment(r.Context(), v, id, header.Filename, contentType, header.Size, file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "DownloadAttachment")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	attachmentID, err := h.PathID(r, "attachmentID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	url, err := h.Service.AttachmentURL(r.Context(), v, id, attachmentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r, "Export")
	if !ok {
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if _, err := h.Service.Export(r.Context(), v, id, &buf); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=document-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("Export: failed to write pdf", "error", err, "document_id", id)
	}
}

func (h *Handler) stepPath(r *http.Request) (int64, int64, error) {
	id, err := h.PathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	stepID, err := h.PathID(r, "stepID")
	if err != nil {
		return 0, 0, err
	}
	return id, stepID, nil
}

func (h *Handler) filter(r *http.Request) ListFilter {
	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	return ListFilter{
		Status: doc.Status(q.Get("status")),
		Type:   doc.Type(q.Get("doc_type")),
		Limit:  limit,
		Offset: offset,
	}
}
