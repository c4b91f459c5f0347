package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Gin_postgres_redis_borrow_return/catalog"
	"Gin_postgres_redis_borrow_return/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrBookingNotFound   = errors.New("room booking not found")
	ErrBookingForbidden  = errors.New("only the booker or an admin can cancel")
	ErrBookingCancelled  = errors.New("booking already cancelled")
	ErrDuplicateRoomCode = errors.New("room code already exists")
)

func (r *Repo) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.DB.WithContext(ctx).Order("code ASC").Find(&rooms).Error
	return rooms, err
}

// isUUID guards uuid columns: Postgres rejects a malformed literal instead of matching nothing.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Repo) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	if !isUUID(id) {
		return nil, ErrRoomNotFound
	}
	var room models.Room
	err := r.DB.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	return &room, err
}

func (r *Repo) CountRooms(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Room{}).Count(&n).Error
	return n, err
}

func (r *Repo) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Room{}).Where("code = ?", room.Code).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRoomCode, room.Code)
	}
	return r.DB.WithContext(ctx).Create(room).Error
}

func (r *Repo) SetRoomStatus(ctx context.Context, id, status string) (*models.Room, error) {
	if !isUUID(id) {
		return nil, ErrRoomNotFound
	}
	res := r.DB.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRoomNotFound
	}
	return r.FindRoom(ctx, id)
}

// ListRoomBookings preloads Room. roomID empty = all rooms.
func (r *Repo) ListRoomBookings(ctx context.Context, roomID string) ([]models.RoomBooking, error) {
	q := r.DB.WithContext(ctx).Preload("Room").Order("start_at DESC")
	if roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}
	var bs []models.RoomBooking
	err := q.Find(&bs).Error
	return bs, err
}

// CreateRoomBooking serializes bookings per room through a row lock on the room,
// then checks the window against the room's active bookings.
func (r *Repo) CreateRoomBooking(ctx context.Context, b *models.RoomBooking, loc *time.Location) error {
	if !isUUID(b.RoomID) {
		return ErrRoomNotFound
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", b.RoomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		var active []models.RoomBooking
		if err := tx.
			Where("room_id = ? AND cancelled_at IS NULL AND start_at < ? AND end_at > ?", b.RoomID, b.EndAt, b.StartAt).
			Find(&active).Error; err != nil {
			return err
		}
		if err := catalog.CheckBooking(room, *b, active, loc); err != nil {
			return err
		}

		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		b.Room = &room
		return nil
	})
}

// CancelRoomBooking lets the booker or an admin cancel a booking that is still active.
func (r *Repo) CancelRoomBooking(ctx context.Context, id, actorID, actorName string, isAdmin bool, reason string) (*models.RoomBooking, error) {
	if !isUUID(id) {
		return nil, ErrBookingNotFound
	}
	var b models.RoomBooking
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if !isAdmin && b.UserID != actorID {
			return ErrBookingForbidden
		}
		if b.CancelledAt != nil {
			return ErrBookingCancelled
		}
		now := time.Now().UTC()
		b.CancelledAt = &now
		b.CancelledBy = actorName
		b.CancelReason = reason
		return tx.Model(&b).Updates(map[string]any{
			"cancelled_at":  now,
			"cancelled_by":  actorName,
			"cancel_reason": reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}
