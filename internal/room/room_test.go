package room_test

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/room"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func clock(s string) int {
	m, err := room.ParseClock(s)
	Expect(err).NotTo(HaveOccurred())
	return m
}

func slot(start, end string) period.Minutes {
	return period.Minutes{Start: clock(start), End: clock(end)}
}

var _ = Describe("Clock parsing", func() {
	It("should read HH:MM as minutes since midnight", func() {
		Expect(clock("09:30")).To(Equal(570))
		Expect(clock("24:00")).To(Equal(1440))
		Expect(room.FormatClock(570)).To(Equal("09:30"))
	})

	It("should reject malformed times", func() {
		_, err := room.ParseClock("9.30")
		Expect(err).To(HaveOccurred())
		_, err = room.ParseClock("25:00")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Conflict", func() {
	existing := []*room.Booking{
		{ID: 1, RoomID: 7, Slot: slot("10:00", "11:00"), Status: room.BookingActive},
		{ID: 2, RoomID: 7, Slot: slot("13:00", "14:00"), Status: room.BookingCancelled},
	}

	It("should report a booking that overlaps part of the slot", func() {
		clash := room.Conflict(existing, slot("10:30", "11:30"))
		Expect(clash).NotTo(BeNil())
		Expect(clash.ID).To(Equal(int64(1)))
	})

	It("should accept a slot that starts where another ends", func() {
		Expect(room.Conflict(existing, slot("11:00", "12:00"))).To(BeNil())
		Expect(room.Conflict(existing, slot("09:00", "10:00"))).To(BeNil())
	})

	It("should ignore cancelled bookings", func() {
		Expect(room.Conflict(existing, slot("13:00", "14:00"))).To(BeNil())
	})

	It("should report a slot enclosing an existing booking", func() {
		Expect(room.Conflict(existing, slot("09:00", "12:00"))).NotTo(BeNil())
	})
})

var _ = Describe("Hours", func() {
	It("should build opening hours from config", func() {
		h, err := room.HoursFromConfig(internal.MeetingRoomConfig{OpenAt: "08:00", CloseAt: "18:00", SlotMinutes: 30})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Open).To(Equal(480))
		Expect(h.Close).To(Equal(1080))
		Expect(h.Contains(slot("08:00", "09:00"))).To(BeTrue())
		Expect(h.Contains(slot("17:30", "18:30"))).To(BeFalse())
	})

	It("should refuse a closing time before opening", func() {
		_, err := room.HoursFromConfig(internal.MeetingRoomConfig{OpenAt: "18:00", CloseAt: "08:00", SlotMinutes: 30})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Grid", func() {
	It("should mark slots covered by active bookings", func() {
		date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		rooms := []*room.Room{{ID: 7, Name: "Orchid"}, {ID: 8, Name: "Lotus"}}
		bookings := []*room.Booking{
			{ID: 1, RoomID: 7, Slot: slot("09:00", "10:00"), Status: room.BookingActive, Title: "Standup"},
		}
		hours := room.Hours{Open: clock("09:00"), Close: clock("11:00"), SlotMinutes: 30}

		grid := room.Grid(rooms, bookings, date, hours)
		Expect(grid).To(HaveLen(2))
		Expect(grid[0].Date).To(Equal("2026-03-02"))
		Expect(grid[0].Slots).To(HaveLen(4))
		Expect(grid[0].Slots[0].Available).To(BeFalse())
		Expect(grid[0].Slots[0].Title).To(Equal("Standup"))
		Expect(grid[0].Slots[1].Available).To(BeFalse())
		Expect(grid[0].Slots[2].Available).To(BeTrue())
		Expect(grid[0].Slots[2].Start).To(Equal("10:00"))
		for _, s := range grid[1].Slots {
			Expect(s.Available).To(BeTrue())
		}
	})

	It("should clip the last slot at closing time", func() {
		date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		hours := room.Hours{Open: clock("09:00"), Close: clock("10:15"), SlotMinutes: 30}
		grid := room.Grid([]*room.Room{{ID: 1}}, nil, date, hours)
		Expect(grid[0].Slots).To(HaveLen(3))
		Expect(grid[0].Slots[2].End).To(Equal("10:15"))
	})
})

var _ = Describe("Booking JSON", func() {
	It("should render the date and times as text", func() {
		b := &room.Booking{
			ID:        3,
			RoomID:    7,
			Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Slot:      slot("10:00", "11:00"),
			Title:     "Review",
			Attendees: []int64{2},
			Status:    room.BookingActive,
		}
		raw, err := json.Marshal(b)
		Expect(err).NotTo(HaveOccurred())

		var out map[string]interface{}
		Expect(json.Unmarshal(raw, &out)).To(Succeed())
		Expect(out["date"]).To(Equal("2026-03-02"))
		Expect(out["start_time"]).To(Equal("10:00"))
		Expect(out["end_time"]).To(Equal("11:00"))
		Expect(out["title"]).To(Equal("Review"))
	})
})
