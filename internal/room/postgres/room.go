package postgres

import (
	"context"
	"errors"
	"time"

	roomDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/room"
	"github.com/frahmantamala/approval-portal/internal/room"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

var _ room.Repository = (*RoomRepository)(nil)

func (r *RoomRepository) ListRooms(ctx context.Context, activeOnly bool) ([]*room.Room, error) {
	var rows []roomDatamodel.Room
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*room.Room, 0, len(rows))
	for i := range rows {
		out = append(out, room.FromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, id int64) (*room.Room, error) {
	return r.findRoom(r.db.WithContext(ctx), id)
}

func (r *RoomRepository) LockRoom(ctx context.Context, id int64) (*room.Room, error) {
	return r.findRoom(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *RoomRepository) findRoom(db *gorm.DB, id int64) (*room.Room, error) {
	var row roomDatamodel.Room
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, room.ErrRoomNotFound
		}
		return nil, err
	}
	return room.FromDataModel(&row), nil
}

func (r *RoomRepository) CreateRoom(ctx context.Context, rm *room.Room) error {
	row := room.ToDataModel(rm)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	rm.ID = row.ID
	return nil
}

// BookingsOn returns the active bookings of a calendar day, optionally for one room.
func (r *RoomRepository) BookingsOn(ctx context.Context, date time.Time, roomID *int64) ([]*room.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("booking_date >= ? AND booking_date < ?", date, date.AddDate(0, 0, 1)).
		Where("status = ?", string(room.BookingActive))
	if roomID != nil {
		q = q.Where("room_id = ?", *roomID)
	}
	return r.findBookings(q.Order("room_id ASC, start_minute ASC"))
}

func (r *RoomRepository) BookingsBy(ctx context.Context, employeeID int64, from time.Time) ([]*room.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("booked_by = ? AND booking_date >= ?", employeeID, from).
		Where("status = ?", string(room.BookingActive)).
		Order("booking_date ASC, start_minute ASC")
	return r.findBookings(q)
}

func (r *RoomRepository) findBookings(q *gorm.DB) ([]*room.Booking, error) {
	var rows []roomDatamodel.Booking
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*room.Booking, 0, len(rows))
	for i := range rows {
		out = append(out, room.BookingFromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *RoomRepository) GetBooking(ctx context.Context, id int64) (*room.Booking, error) {
	var row roomDatamodel.Booking
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, room.ErrBookingNotFound
		}
		return nil, err
	}
	return room.BookingFromDataModel(&row), nil
}

func (r *RoomRepository) CreateBooking(ctx context.Context, b *room.Booking) error {
	row := room.BookingToDataModel(b)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	b.ID = row.ID
	b.CreatedAt = row.CreatedAt
	return nil
}

func (r *RoomRepository) CancelBooking(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&roomDatamodel.Booking{}).
		Where("id = ? AND status = ?", id, string(room.BookingActive)).
		Updates(map[string]interface{}{
			"status":     string(room.BookingCancelled),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return room.ErrAlreadyCanceled
	}
	return nil
}

// TxManager runs a booking decision against one transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

var _ room.Transactor = (*TxManager)(nil)

func (m *TxManager) Transaction(ctx context.Context, fn func(repo room.Repository) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRoomRepository(tx))
	})
}
