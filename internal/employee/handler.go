package employee

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/approval-portal/internal/auth"
	"github.com/frahmantamala/approval-portal/internal/transport"
	"github.com/frahmantamala/approval-portal/pkg/logger"
)

type ServiceAPI interface {
	Get(ctx context.Context, id int64) (*Employee, error)
	OrgTree(ctx context.Context) ([]*OrgNode, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrent handles GET /employees/me
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.Logger.Error("GetCurrent: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	e, err := h.Service.Get(r.Context(), u.ID)
	if err != nil {
		h.Logger.Error("GetCurrent: failed to load employee", "employee_id", u.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

// Get handles GET /employees/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid employee id")
		return
	}
	e, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	e.Permissions = nil
	h.WriteJSON(w, http.StatusOK, e)
}

// OrgTree handles GET /org-units
func (h *Handler) OrgTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Service.OrgTree(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tree)
}
