package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/room"
	"github.com/frahmantamala/approval-portal/internal/room/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RoomRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.RoomRepository
		r    *room.Room
		day  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		db := openDB()
		repo = postgres.NewRoomRepository(db)
		r = &room.Room{Name: "Orchid", Location: "3F", Capacity: 8, IsActive: true}
		Expect(repo.CreateRoom(ctx, r)).To(Succeed())
		day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	})

	newBooking := func(date time.Time, start, end int) *room.Booking {
		return &room.Booking{
			RoomID:    r.ID,
			Date:      date,
			Slot:      period.Minutes{Start: start, End: end},
			BookedBy:  1,
			Title:     "Sync",
			Attendees: []int64{2, 3},
			Status:    room.BookingActive,
		}
	}

	It("should store a booking and read it back", func() {
		b := newBooking(day, 600, 660)
		Expect(repo.CreateBooking(ctx, b)).To(Succeed())

		loaded, err := repo.GetBooking(ctx, b.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Slot).To(Equal(period.Minutes{Start: 600, End: 660}))
		Expect(loaded.Attendees).To(Equal([]int64{2, 3}))
		Expect(loaded.DateString()).To(Equal("2026-03-02"))
	})

	It("should list only active bookings of the requested day", func() {
		Expect(repo.CreateBooking(ctx, newBooking(day, 600, 660))).To(Succeed())
		Expect(repo.CreateBooking(ctx, newBooking(day.AddDate(0, 0, 1), 600, 660))).To(Succeed())
		cancelled := newBooking(day, 700, 760)
		Expect(repo.CreateBooking(ctx, cancelled)).To(Succeed())
		Expect(repo.CancelBooking(ctx, cancelled.ID)).To(Succeed())

		bookings, err := repo.BookingsOn(ctx, day, &r.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(bookings).To(HaveLen(1))
		Expect(bookings[0].Slot.Start).To(Equal(600))
	})

	It("should cancel a booking once", func() {
		b := newBooking(day, 600, 660)
		Expect(repo.CreateBooking(ctx, b)).To(Succeed())
		Expect(repo.CancelBooking(ctx, b.ID)).To(Succeed())
		Expect(repo.CancelBooking(ctx, b.ID)).To(MatchError(room.ErrAlreadyCanceled))
	})

	It("should report missing rooms and bookings", func() {
		_, err := repo.GetRoom(ctx, 999)
		Expect(err).To(MatchError(room.ErrRoomNotFound))
		_, err = repo.GetBooking(ctx, 999)
		Expect(err).To(MatchError(room.ErrBookingNotFound))
	})

	It("should list active rooms by name", func() {
		Expect(repo.CreateRoom(ctx, &room.Room{Name: "Annex", Capacity: 4, IsActive: true})).To(Succeed())
		rooms, err := repo.ListRooms(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(rooms).To(HaveLen(2))
		Expect(rooms[0].Name).To(Equal("Annex"))
	})

	It("should store a closed room as inactive", func() {
		closed := &room.Room{Name: "Storage", Capacity: 2, IsActive: false}
		Expect(repo.CreateRoom(ctx, closed)).To(Succeed())

		got, err := repo.GetRoom(ctx, closed.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsActive).To(BeFalse())

		rooms, err := repo.ListRooms(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(rooms).To(HaveLen(1))
		Expect(rooms[0].Name).To(Equal("Orchid"))
	})
})

var _ = Describe("Booking through the service", func() {
	It("should refuse an overlap committed by an earlier booking", func() {
		ctx := context.Background()
		db := openDB()
		repo := postgres.NewRoomRepository(db)
		r := &room.Room{Name: "Orchid", Capacity: 8, IsActive: true}
		Expect(repo.CreateRoom(ctx, r)).To(Succeed())

		now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
		hours := room.Hours{Open: 8 * 60, Close: 18 * 60, SlotMinutes: 30}
		service := room.NewService(repo, postgres.NewTxManager(db), hours, nil, now, slog.New(slog.NewTextHandler(io.Discard, nil)))

		dto := room.BookDTO{RoomID: r.ID, Date: "2026-03-02", StartTime: "10:00", EndTime: "11:00", Title: "Sync"}
		_, err := service.Book(ctx, 1, dto)
		Expect(err).NotTo(HaveOccurred())

		dto.StartTime, dto.EndTime = "10:30", "11:30"
		_, err = service.Book(ctx, 2, dto)
		Expect(err).To(MatchError(room.ErrOverlap))

		dto.StartTime, dto.EndTime = "11:00", "12:00"
		_, err = service.Book(ctx, 2, dto)
		Expect(err).NotTo(HaveOccurred())
	})
})
