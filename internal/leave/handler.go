package leave

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/auth"
	"github.com/frahmantamala/approval-portal/internal/transport"
	"github.com/frahmantamala/approval-portal/pkg/logger"
	"github.com/shopspring/decimal"
)

type ServiceAPI interface {
	GetBalance(ctx context.Context, employeeID int64, year int) (*Balance, error)
	ListBalances(ctx context.Context, year int) ([]*Balance, error)
	GrantYear(ctx context.Context, year int, days decimal.Decimal) (int, error)
	Quote(ctx context.Context, employeeID int64, dto QuoteDTO) (*QuoteResult, error)
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

func (h *Handler) GetMyBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	year, err := yearParam(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	balance, err := h.Service.GetBalance(r.Context(), user.ID, year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balance)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto QuoteDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	quote, err := h.Service.Quote(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, quote)
}

func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	balances, err := h.Service.ListBalances(r.Context(), year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"year":     year,
		"balances": balances,
	})
}

func (h *Handler) GrantYear(w http.ResponseWriter, r *http.Request) {
	var dto GrantDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	created, err := h.Service.GrantYear(r.Context(), dto.Year, decimal.NewFromFloat(dto.Days))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("GrantYear: balances granted", "year", dto.Year, "created", created, "actor", internal.ActorLabel(r.Context()))
	h.WriteJSON(w, http.StatusOK, map[string]int{"created": created})
}

func yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		return 0, internal.NewValidationFieldError("year", "year must be a four digit year", internal.ErrCodeInvalidDate)
	}
	return year, nil
}
