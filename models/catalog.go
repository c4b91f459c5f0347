// models/catalog.go
package models

import "time"

const EquipmentTable = "pte_equipment"
const RoomTable = "pte_rooms"
const RoomBookingTable = "pte_room_bookings"

// Equipment categories. An asset row is a single tracked unit (quantity 1 when added).
const (
	CategoryConsumable = "consumable"
	CategoryAsset      = "asset"
	CategoryMain       = "main"
)

// Room status values.
const (
	RoomAvailable   = "available"
	RoomUnavailable = "unavailable"
)

type Equipment struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:200;not null;index" json:"name"`
	Category  string    `gorm:"size:20;not null;index" json:"category"`
	Quantity  int       `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"` // on hand
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Equipment) TableName() string { return EquipmentTable }

type Room struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Type      string    `gorm:"size:64;not null;index" json:"type"`
	Status    string    `gorm:"size:20;not null;default:'available'" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Room) TableName() string { return RoomTable }

type RoomBooking struct {
	ID       string    `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID   string    `gorm:"type:uuid;index;not null" json:"roomId"`
	Room     *Room     `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	UserID   string    `gorm:"size:64;index;not null" json:"userId"`
	UserName string    `gorm:"size:255;not null" json:"userName"`
	StartAt  time.Time `gorm:"index;not null" json:"startAt"`
	EndAt    time.Time `gorm:"index;not null" json:"endAt"`
	Purpose  string    `gorm:"type:text" json:"purpose"`

	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy  string     `gorm:"size:255" json:"cancelledBy,omitempty"`
	CancelReason string     `gorm:"type:text" json:"cancelReason,omitempty"`

	CreatedAt time.Time `json:"bookedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (RoomBooking) TableName() string { return RoomBookingTable }
