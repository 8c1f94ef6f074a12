package room

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/core/events"
)

type Repository interface {
	ListRooms(ctx context.Context, activeOnly bool) ([]*Room, error)
	GetRoom(ctx context.Context, id int64) (*Room, error)
	// LockRoom loads the room and holds a row lock on it until the transaction ends,
	// so bookings of one room are decided one at a time.
	LockRoom(ctx context.Context, id int64) (*Room, error)
	CreateRoom(ctx context.Context, r *Room) error

	BookingsOn(ctx context.Context, date time.Time, roomID *int64) ([]*Booking, error)
	BookingsBy(ctx context.Context, employeeID int64, from time.Time) ([]*Booking, error)
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	CreateBooking(ctx context.Context, b *Booking) error
	// CancelBooking flips an active booking to cancelled and reports ErrAlreadyCanceled otherwise.
	CancelBooking(ctx context.Context, id int64) error
}

type Transactor interface {
	Transaction(ctx context.Context, fn func(repo Repository) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      Repository
	tx        Transactor
	hours     Hours
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(repo Repository, tx Transactor, hours Hours, publisher Publisher, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		hours:     hours,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

func (s *Service) ListRooms(ctx context.Context) ([]*Room, error) {
	return s.repo.ListRooms(ctx, true)
}

func (s *Service) CreateRoom(ctx context.Context, dto CreateRoomDTO) (*Room, error) {
	r := &Room{
		Name:     strings.TrimSpace(dto.Name),
		Location: strings.TrimSpace(dto.Location),
		Capacity: dto.Capacity,
		IsActive: true,
	}
	if err := s.repo.CreateRoom(ctx, r); err != nil {
		s.logger.Error("failed to create meeting room", "error", err, "name", r.Name)
		return nil, err
	}
	s.logger.Info("meeting room created", "room_id", r.ID, "name", r.Name)
	return r, nil
}

// Book reserves [start, end) of one room on one date, refusing any overlap with an active booking.
func (s *Service) Book(ctx context.Context, employeeID int64, dto BookDTO) (*Booking, error) {
	date, slot, err := s.parseSlot(dto.Date, dto.StartTime, dto.EndTime)
	if err != nil {
		return nil, err
	}
	if date.Before(period.Day(s.now())) {
		return nil, ErrPastDate
	}

	b := &Booking{
		RoomID:    dto.RoomID,
		Date:      date,
		Slot:      slot,
		BookedBy:  employeeID,
		Title:     strings.TrimSpace(dto.Title),
		Attendees: dedupe(dto.Attendees),
		Status:    BookingActive,
	}

	var booked *Room
	err = s.tx.Transaction(ctx, func(repo Repository) error {
		r, err := repo.LockRoom(ctx, dto.RoomID)
		if err != nil {
			return err
		}
		if !r.IsActive {
			return ErrRoomInactive
		}
		existing, err := repo.BookingsOn(ctx, date, &r.ID)
		if err != nil {
			return err
		}
		if clash := Conflict(existing, slot); clash != nil {
			return ErrOverlap.WithDetails(map[string]interface{}{
				"booking_id": clash.ID,
				"start_time": FormatClock(clash.Slot.Start),
				"end_time":   FormatClock(clash.Slot.End),
			})
		}
		booked = r
		return repo.CreateBooking(ctx, b)
	})
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeConflict) {
			s.logger.Info("room booking refused", "room_id", dto.RoomID, "date", dto.Date, "start", dto.StartTime, "end", dto.EndTime)
		}
		return nil, err
	}

	s.logger.Info("room booked",
		"booking_id", b.ID,
		"room_id", b.RoomID,
		"booked_by", employeeID,
		"date", b.DateString(),
		"start", FormatClock(slot.Start),
		"end", FormatClock(slot.End))

	if s.publisher != nil {
		e := events.NewRoomBookedEvent(b.ID, booked.ID, booked.Name, employeeID, b.DateString(), FormatClock(slot.Start), FormatClock(slot.End), b.Title)
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("failed to publish room booking", "error", err, "booking_id", b.ID)
		}
	}
	return b, nil
}

// Cancel releases a booking. Only the booker or a room manager may do so.
func (s *Service) Cancel(ctx context.Context, employeeID int64, canManage bool, bookingID int64) error {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.BookedBy != employeeID && !canManage {
		return ErrNotBooker
	}
	if err := s.repo.CancelBooking(ctx, bookingID); err != nil {
		return err
	}
	s.logger.Info("room booking cancelled", "booking_id", bookingID, "cancelled_by", employeeID)
	return nil
}

// Availability returns the slot grid of every active room, or of one room, for a date.
func (s *Service) Availability(ctx context.Context, dateStr string, roomID *int64) ([]*Availability, error) {
	date, err := period.ParseDate(dateStr)
	if err != nil {
		return nil, internal.NewValidationFieldError("date", err.Error(), internal.ErrCodeInvalidDate)
	}

	var rooms []*Room
	if roomID != nil {
		r, err := s.repo.GetRoom(ctx, *roomID)
		if err != nil {
			return nil, err
		}
		rooms = []*Room{r}
	} else {
		rooms, err = s.repo.ListRooms(ctx, true)
		if err != nil {
			return nil, err
		}
	}

	bookings, err := s.repo.BookingsOn(ctx, date, roomID)
	if err != nil {
		return nil, err
	}
	return Grid(rooms, bookings, date, s.hours), nil
}

func (s *Service) MyBookings(ctx context.Context, employeeID int64) ([]*Booking, error) {
	return s.repo.BookingsBy(ctx, employeeID, period.Day(s.now()))
}

func (s *Service) parseSlot(dateStr, startStr, endStr string) (time.Time, period.Minutes, error) {
	date, err := period.ParseDate(dateStr)
	if err != nil {
		return time.Time{}, period.Minutes{}, internal.NewValidationFieldError("date", err.Error(), internal.ErrCodeInvalidDate)
	}
	start, err := ParseClock(startStr)
	if err != nil {
		return time.Time{}, period.Minutes{}, internal.NewValidationFieldError("start_time", err.Error(), internal.ErrCodeInvalidRange)
	}
	end, err := ParseClock(endStr)
	if err != nil {
		return time.Time{}, period.Minutes{}, internal.NewValidationFieldError("end_time", err.Error(), internal.ErrCodeInvalidRange)
	}
	slot := period.Minutes{Start: start, End: end}
	if !slot.Valid() {
		return time.Time{}, period.Minutes{}, ErrInvalidSlot
	}
	if !s.hours.Contains(slot) {
		return time.Time{}, period.Minutes{}, ErrOutsideHours.WithDetails(map[string]string{
			"open_at":  FormatClock(s.hours.Open),
			"close_at": FormatClock(s.hours.Close),
		})
	}
	return date, slot, nil
}

func dedupe(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
