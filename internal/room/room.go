package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	roomDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/room"
)

type Room struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Capacity int    `json:"capacity"`
	IsActive bool   `json:"is_active"`
}

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID        int64          `json:"id"`
	RoomID    int64          `json:"room_id"`
	Date      time.Time      `json:"-"`
	Slot      period.Minutes `json:"-"`
	BookedBy  int64          `json:"booked_by"`
	Title     string         `json:"title"`
	Attendees []int64        `json:"attendees"`
	Status    BookingStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

func (b *Booking) DateString() string {
	return b.Date.Format(period.DateLayout)
}

func (b *Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	return json.Marshal(struct {
		*alias
		Date  string `json:"date"`
		Start string `json:"start_time"`
		End   string `json:"end_time"`
	}{
		alias: (*alias)(b),
		Date:  b.DateString(),
		Start: FormatClock(b.Slot.Start),
		End:   FormatClock(b.Slot.End),
	})
}

var (
	ErrRoomNotFound    = internal.NewNotFoundError("meeting room not found", internal.ErrCodeRoomNotFound)
	ErrRoomInactive    = internal.NewValidationError("meeting room is not available for booking", internal.ErrCodeRoomInactive)
	ErrBookingNotFound = internal.NewNotFoundError("booking not found", internal.ErrCodeBookingNotFound)
	ErrOverlap         = internal.NewConflictError("the room is already booked for part of that time", internal.ErrCodeRoomOverlap)
	ErrInvalidSlot     = internal.NewValidationError("end time must be after start time", internal.ErrCodeInvalidRange)
	ErrOutsideHours    = internal.NewValidationError("booking must fall within opening hours", internal.ErrCodeOutsideHours)
	ErrPastDate        = internal.NewValidationError("cannot book a date in the past", internal.ErrCodeInvalidDate)
	ErrNotBooker       = internal.NewForbiddenError("only the booker or a room manager can cancel this booking", internal.ErrCodeUnauthorizedAccess)
	ErrAlreadyCanceled = internal.NewConflictError("booking is already cancelled", internal.ErrCodeAlreadyDecided)
)

// ParseClock reads "HH:MM" as minutes since midnight. "24:00" is accepted as end of day.
func ParseClock(s string) (int, error) {
	if s == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Hours is the bookable window of a day and the granularity of the availability grid.
type Hours struct {
	Open        int
	Close       int
	SlotMinutes int
}

func HoursFromConfig(cfg internal.MeetingRoomConfig) (Hours, error) {
	open, err := ParseClock(cfg.OpenAt)
	if err != nil {
		return Hours{}, err
	}
	closeAt, err := ParseClock(cfg.CloseAt)
	if err != nil {
		return Hours{}, err
	}
	h := Hours{Open: open, Close: closeAt, SlotMinutes: cfg.SlotMinutes}
	if h.SlotMinutes <= 0 {
		h.SlotMinutes = 30
	}
	if h.Close <= h.Open {
		return Hours{}, fmt.Errorf("close %s must be after open %s", cfg.CloseAt, cfg.OpenAt)
	}
	return h, nil
}

func (h Hours) Contains(m period.Minutes) bool {
	return m.Start >= h.Open && m.End <= h.Close
}

// Conflict returns the first active booking whose interval overlaps slot.
// Intervals are half-open, so a booking ending at 11:00 leaves 11:00 free.
func Conflict(existing []*Booking, slot period.Minutes) *Booking {
	for _, b := range existing {
		if b.Status == BookingActive && b.Slot.Overlaps(slot) {
			return b
		}
	}
	return nil
}

type SlotState struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	BookingID *int64 `json:"booking_id,omitempty"`
	Title     string `json:"title,omitempty"`
}

type Availability struct {
	Room  *Room       `json:"room"`
	Date  string      `json:"date"`
	Slots []SlotState `json:"slots"`
}

// Grid lays the day's active bookings of each room over the opening hours.
func Grid(rooms []*Room, bookings []*Booking, date time.Time, hours Hours) []*Availability {
	byRoom := map[int64][]*Booking{}
	for _, b := range bookings {
		if b.Status == BookingActive {
			byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
		}
	}

	out := make([]*Availability, 0, len(rooms))
	for _, r := range rooms {
		a := &Availability{Room: r, Date: date.Format(period.DateLayout)}
		for start := hours.Open; start < hours.Close; start += hours.SlotMinutes {
			end := start + hours.SlotMinutes
			if end > hours.Close {
				end = hours.Close
			}
			state := SlotState{Start: FormatClock(start), End: FormatClock(end), Available: true}
			if b := Conflict(byRoom[r.ID], period.Minutes{Start: start, End: end}); b != nil {
				id := b.ID
				state.Available = false
				state.BookingID = &id
				state.Title = b.Title
			}
			a.Slots = append(a.Slots, state)
		}
		out = append(out, a)
	}
	return out
}

func ToDataModel(r *Room) *roomDatamodel.Room {
	return &roomDatamodel.Room{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location,
		Capacity: r.Capacity,
		IsActive: r.IsActive,
	}
}

func FromDataModel(r *roomDatamodel.Room) *Room {
	return &Room{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location,
		Capacity: r.Capacity,
		IsActive: r.IsActive,
	}
}

func BookingToDataModel(b *Booking) *roomDatamodel.Booking {
	return &roomDatamodel.Booking{
		ID:          b.ID,
		RoomID:      b.RoomID,
		BookingDate: b.Date,
		StartMinute: b.Slot.Start,
		EndMinute:   b.Slot.End,
		BookedBy:    b.BookedBy,
		Title:       b.Title,
		Attendees:   b.Attendees,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}

func BookingFromDataModel(b *roomDatamodel.Booking) *Booking {
	attendees := []int64(b.Attendees)
	if attendees == nil {
		attendees = []int64{}
	}
	return &Booking{
		ID:        b.ID,
		RoomID:    b.RoomID,
		Date:      period.Day(b.BookingDate),
		Slot:      period.Minutes{Start: b.StartMinute, End: b.EndMinute},
		BookedBy:  b.BookedBy,
		Title:     b.Title,
		Attendees: attendees,
		Status:    BookingStatus(b.Status),
		CreatedAt: b.CreatedAt,
	}
}
