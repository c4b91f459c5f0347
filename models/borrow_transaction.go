// models/borrow_transaction.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

const BorrowTable = "pte_borrow_history"
const TransitionTable = "pte_borrow_transitions"

// BorrowItem is one line of a borrow request. Quantity is not checked against stock until confirm.
type BorrowItem struct {
	EquipmentID       string `json:"equipmentId"`
	EquipmentName     string `json:"equipmentName"`
	EquipmentCategory string `json:"equipmentCategory"`
	QuantityBorrowed  int    `json:"quantityBorrowed"`
}

// BorrowTransaction is the permanent record of one loan request. Rows are merged, never deleted.
type BorrowTransaction struct {
	ID           string `gorm:"primaryKey;size:64" json:"borrowId"`
	UserID       string `gorm:"size:64;index;not null" json:"userId"`
	UserEmail    string `gorm:"size:255;not null" json:"userEmail"`
	UserName     string `gorm:"size:255;not null" json:"userName"`
	UserIDNumber string `gorm:"size:32" json:"userIdNumber,omitempty"`
	BorrowType   string `gorm:"size:20;not null" json:"borrowType"`

	EquipmentItems datatypes.JSONSlice[BorrowItem] `gorm:"type:jsonb;not null" json:"equipmentItems"`

	BorrowAt         time.Time  `gorm:"index;not null" json:"borrowAt"`
	ExpectedReturnAt time.Time  `gorm:"not null" json:"expectedReturnAt"`
	ActualReturnAt   *time.Time `json:"actualReturnAt,omitempty"`
	ReturnedAt       *time.Time `json:"returnTimestamp,omitempty"` // when the return was logged

	ConditionBeforeBorrow string `gorm:"type:text" json:"conditionBeforeBorrow"`
	ConditionOnReturn     string `gorm:"type:text" json:"conditionOnReturn,omitempty"`
	DamagesAndIssues      string `gorm:"type:text" json:"damagesAndIssues,omitempty"`

	Status string `gorm:"size:20;index;not null" json:"status"`
	Notes  string `gorm:"type:text" json:"notes,omitempty"`

	ConfirmedBy      string     `gorm:"size:255" json:"confirmedBy,omitempty"`
	ConfirmedByEmail string     `gorm:"size:255" json:"confirmedByEmail,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmedAt,omitempty"`

	CancelledBy      string     `gorm:"size:255" json:"cancelledBy,omitempty"`
	CancelledByEmail string     `gorm:"size:255" json:"cancelledByEmail,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	CancelReason     string     `gorm:"type:text" json:"cancelReason,omitempty"`

	ReturnedBy      string `gorm:"size:255" json:"returnedBy,omitempty"`
	ReturnedByEmail string `gorm:"size:255" json:"returnedByEmail,omitempty"`

	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (BorrowTransaction) TableName() string { return BorrowTable }

// TransitionLog is the append-only audit row written with every lifecycle write.
type TransitionLog struct {
	ID            string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionID string    `gorm:"size:64;index;not null" json:"borrowId"`
	Action        string    `gorm:"size:20;not null" json:"action"`
	FromStatus    string    `gorm:"size:20" json:"fromStatus,omitempty"`
	ToStatus      string    `gorm:"size:20;not null" json:"toStatus"`
	ActorID       string    `gorm:"size:64" json:"actorId,omitempty"`
	ActorName     string    `gorm:"size:255" json:"actorName"`
	ActorEmail    string    `gorm:"size:255" json:"actorEmail,omitempty"`
	Reason        *string   `json:"reason,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
}

func (TransitionLog) TableName() string { return TransitionTable }
