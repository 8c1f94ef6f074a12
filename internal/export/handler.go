package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"github.com/frahmantamala/approval-portal/internal/transport"
	"github.com/frahmantamala/approval-portal/pkg/logger"
)

type BalanceLister interface {
	ListBalances(ctx context.Context, year int) ([]*leave.Balance, error)
}

type Handler struct {
	*transport.BaseHandler
	Balances BalanceLister
	People   People
}

func NewHandler(balances BalanceLister, people People) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Balances:    balances,
		People:      people,
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LeaveUsage serves GET /reports/leave-usage?year=YYYY as an xlsx download.
func (h *Handler) LeaveUsage(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 2000 || y > 2100 {
			h.HandleServiceError(w, internal.NewValidationFieldError("year", "year must be a four digit year", internal.ErrCodeInvalidDate))
			return
		}
		year = y
	}

	balances, err := h.Balances.ListBalances(r.Context(), year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	names := make(map[int64]string, len(balances))
	if h.People != nil {
		for _, b := range balances {
			if p, err := h.People.Profile(r.Context(), b.EmployeeID); err == nil {
				names[b.EmployeeID] = p.Name
			}
		}
	}

	var buf bytes.Buffer
	if err := WriteLeaveUsage(&buf, year, balances, names); err != nil {
		h.Logger.Error("LeaveUsage: failed to build workbook", "error", err, "year", year)
		h.WriteError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leave-usage-%d.xlsx"`, year))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
