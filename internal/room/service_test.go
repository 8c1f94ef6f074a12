package room_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/events"
	"github.com/frahmantamala/approval-portal/internal/room"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type memoryRepo struct {
	rooms    map[int64]*room.Room
	bookings []*room.Booking
	nextID   int64
}

func newMemoryRepo(rooms ...*room.Room) *memoryRepo {
	m := &memoryRepo{rooms: map[int64]*room.Room{}}
	for _, r := range rooms {
		m.rooms[r.ID] = r
	}
	return m
}

func (m *memoryRepo) ListRooms(ctx context.Context, activeOnly bool) ([]*room.Room, error) {
	var out []*room.Room
	for _, r := range m.rooms {
		if !activeOnly || r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetRoom(ctx context.Context, id int64) (*room.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return r, nil
}

func (m *memoryRepo) LockRoom(ctx context.Context, id int64) (*room.Room, error) {
	return m.GetRoom(ctx, id)
}

func (m *memoryRepo) CreateRoom(ctx context.Context, r *room.Room) error {
	m.nextID++
	r.ID = m.nextID + 100
	m.rooms[r.ID] = r
	return nil
}

func (m *memoryRepo) BookingsOn(ctx context.Context, date time.Time, roomID *int64) ([]*room.Booking, error) {
	var out []*room.Booking
	for _, b := range m.bookings {
		if b.Date.Equal(date) && (roomID == nil || b.RoomID == *roomID) && b.Status == room.BookingActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryRepo) BookingsBy(ctx context.Context, employeeID int64, from time.Time) ([]*room.Booking, error) {
	var out []*room.Booking
	for _, b := range m.bookings {
		if b.BookedBy == employeeID && !b.Date.Before(from) && b.Status == room.BookingActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetBooking(ctx context.Context, id int64) (*room.Booking, error) {
	for _, b := range m.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, room.ErrBookingNotFound
}

func (m *memoryRepo) CreateBooking(ctx context.Context, b *room.Booking) error {
	m.nextID++
	b.ID = m.nextID
	m.bookings = append(m.bookings, b)
	return nil
}

func (m *memoryRepo) CancelBooking(ctx context.Context, id int64) error {
	b, err := m.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != room.BookingActive {
		return room.ErrAlreadyCanceled
	}
	b.Status = room.BookingCancelled
	return nil
}

func (m *memoryRepo) Transaction(ctx context.Context, fn func(repo room.Repository) error) error {
	return fn(m)
}

type capturePublisher struct {
	published []events.Event
}

func (c *capturePublisher) Publish(ctx context.Context, e events.Event) error {
	c.published = append(c.published, e)
	return nil
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		repo      *memoryRepo
		publisher *capturePublisher
		service   *room.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMemoryRepo(
			&room.Room{ID: 7, Name: "Orchid", Capacity: 8, IsActive: true},
			&room.Room{ID: 8, Name: "Storage", Capacity: 2, IsActive: false},
		)
		publisher = &capturePublisher{}
		hours := room.Hours{Open: 8 * 60, Close: 18 * 60, SlotMinutes: 30}
		now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
		service = room.NewService(repo, repo, hours, publisher, now, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	book := func(employee int64, start, end string) (*room.Booking, error) {
		return service.Book(ctx, employee, room.BookDTO{
			RoomID: 7, Date: "2026-03-02", StartTime: start, EndTime: end, Title: "Sync",
		})
	}

	Describe("Book", func() {
		It("should refuse an overlapping booking and accept an adjacent one", func() {
			_, err := book(1, "10:00", "11:00")
			Expect(err).NotTo(HaveOccurred())

			_, err = book(2, "10:30", "11:30")
			Expect(err).To(MatchError(room.ErrOverlap))

			adjacent, err := book(2, "11:00", "12:00")
			Expect(err).NotTo(HaveOccurred())
			Expect(adjacent.ID).NotTo(BeZero())
		})

		It("should announce the booking", func() {
			_, err := book(1, "10:00", "11:00")
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.EventTypeRoomBooked))
		})

		It("should refuse an empty or reversed interval", func() {
			_, err := book(1, "11:00", "11:00")
			Expect(err).To(MatchError(room.ErrInvalidSlot))
			_, err = book(1, "11:00", "10:00")
			Expect(err).To(MatchError(room.ErrInvalidSlot))
		})

		It("should refuse times outside opening hours", func() {
			_, err := book(1, "07:30", "08:30")
			Expect(err).To(MatchError(room.ErrOutsideHours))
		})

		It("should refuse past dates", func() {
			_, err := service.Book(ctx, 1, room.BookDTO{RoomID: 7, Date: "2026-02-27", StartTime: "10:00", EndTime: "11:00", Title: "Late"})
			Expect(err).To(MatchError(room.ErrPastDate))
		})

		It("should refuse inactive rooms", func() {
			_, err := service.Book(ctx, 1, room.BookDTO{RoomID: 8, Date: "2026-03-02", StartTime: "10:00", EndTime: "11:00", Title: "Boxes"})
			Expect(err).To(MatchError(room.ErrRoomInactive))
		})

		It("should collapse repeated attendees", func() {
			b, err := service.Book(ctx, 1, room.BookDTO{RoomID: 7, Date: "2026-03-02", StartTime: "10:00", EndTime: "11:00", Title: "Sync", Attendees: []int64{2, 3, 2}})
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Attendees).To(Equal([]int64{2, 3}))
		})
	})

	Describe("Cancel", func() {
		It("should let the booker cancel and free the slot", func() {
			b, err := book(1, "10:00", "11:00")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Cancel(ctx, 1, false, b.ID)).To(Succeed())
			_, err = book(2, "10:00", "11:00")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse other employees without the room permission", func() {
			b, err := book(1, "10:00", "11:00")
			Expect(err).NotTo(HaveOccurred())

			err = service.Cancel(ctx, 2, false, b.ID)
			Expect(err).To(MatchError(room.ErrNotBooker))
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())

			Expect(service.Cancel(ctx, 2, true, b.ID)).To(Succeed())
		})

		It("should refuse cancelling twice", func() {
			b, err := book(1, "10:00", "11:00")
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Cancel(ctx, 1, false, b.ID)).To(Succeed())
			Expect(service.Cancel(ctx, 1, false, b.ID)).To(MatchError(room.ErrAlreadyCanceled))
		})
	})

	Describe("Availability", func() {
		It("should show booked slots for a single room", func() {
			_, err := book(1, "08:00", "09:00")
			Expect(err).NotTo(HaveOccurred())

			id := int64(7)
			grid, err := service.Availability(ctx, "2026-03-02", &id)
			Expect(err).NotTo(HaveOccurred())
			Expect(grid).To(HaveLen(1))
			Expect(grid[0].Slots).To(HaveLen(20))
			Expect(grid[0].Slots[0].Available).To(BeFalse())
			Expect(grid[0].Slots[2].Available).To(BeTrue())
		})

		It("should reject a malformed date", func() {
			_, err := service.Availability(ctx, "02/03/2026", nil)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	It("should list upcoming bookings of an employee", func() {
		_, err := book(1, "10:00", "11:00")
		Expect(err).NotTo(HaveOccurred())
		_, err = book(2, "12:00", "13:00")
		Expect(err).NotTo(HaveOccurred())

		mine, err := service.MyBookings(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(mine).To(HaveLen(1))
	})
})
