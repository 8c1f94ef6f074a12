package room

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Location  string    `gorm:"column:location"`
	Capacity  int       `gorm:"column:capacity;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Room) TableName() string {
	return "meeting_rooms"
}

type Booking struct {
	ID          int64                      `gorm:"primaryKey"`
	RoomID      int64                      `gorm:"column:room_id;not null;index:idx_bookings_room_date"`
	BookingDate time.Time                  `gorm:"column:booking_date;type:date;not null;index:idx_bookings_room_date"`
	StartMinute int                        `gorm:"column:start_minute;not null"`
	EndMinute   int                        `gorm:"column:end_minute;not null"`
	BookedBy    int64                      `gorm:"column:booked_by;not null;index"`
	Title       string                     `gorm:"column:title;not null"`
	Attendees   datatypes.JSONSlice[int64] `gorm:"column:attendees"`
	Status      string                     `gorm:"column:status;not null"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Booking) TableName() string {
	return "meeting_room_bookings"
}
