package room

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/approval-portal/internal/auth"
	"github.com/frahmantamala/approval-portal/internal/transport"
	"github.com/frahmantamala/approval-portal/pkg/logger"
)

type ServiceAPI interface {
	ListRooms(ctx context.Context) ([]*Room, error)
	CreateRoom(ctx context.Context, dto CreateRoomDTO) (*Room, error)
	Book(ctx context.Context, employeeID int64, dto BookDTO) (*Booking, error)
	Cancel(ctx context.Context, employeeID int64, canManage bool, bookingID int64) error
	Availability(ctx context.Context, date string, roomID *int64) ([]*Availability, error)
	MyBookings(ctx context.Context, employeeID int64) ([]*Booking, error)
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

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Service.ListRooms(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rooms)
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoomDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	created, err := h.Service.CreateRoom(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

// Availability serves GET /rooms/availability?date=YYYY-MM-DD[&room_id=N].
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		h.WriteError(w, http.StatusBadRequest, "date is required")
		return
	}

	var roomID *int64
	if raw := r.URL.Query().Get("room_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.WriteError(w, http.StatusBadRequest, "invalid room_id")
			return
		}
		roomID = &id
	}

	grid, err := h.Service.Availability(r.Context(), date, roomID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, grid)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("Book: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto BookDTO
	if err := h.DecodeAndValidate(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	booking, err := h.Service.Book(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, booking)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("Cancel: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := h.Service.Cancel(r.Context(), user.ID, user.CanManageRooms(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookings, err := h.Service.MyBookings(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, bookings)
}
