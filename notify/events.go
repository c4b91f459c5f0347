package notify

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Routing keys of lifecycle events. They double as Event.Kind.
const (
	RKBorrowCreated   = "borrow.created"
	RKBorrowConfirmed = "borrow.confirmed"
	RKBorrowCancelled = "borrow.cancelled"
	RKBorrowReturned  = "borrow.returned"
)

// BorrowEmail carries everything the acknowledgment mail shows. Dates are display strings.
type BorrowEmail struct {
	UserEmail          string   `json:"userEmail"`
	UserName           string   `json:"userName"`
	EquipmentNames     []string `json:"equipmentNames"`
	BorrowDate         string   `json:"borrowDate"`
	BorrowTime         string   `json:"borrowTime"`
	ExpectedReturnDate string   `json:"expectedReturnDate"`
	ExpectedReturnTime string   `json:"expectedReturnTime"`
	BorrowType         string   `json:"borrowType"`
}

type Event struct {
	Kind          string      `json:"kind"`
	TransactionID string      `json:"borrowId"`
	Status        string      `json:"status"`
	Actor         string      `json:"actor,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Mail          BorrowEmail `json:"mail"`
}

// Notifier delivers lifecycle events. Implementations do not retry.
type Notifier interface {
	Send(ctx context.Context, ev Event) error
}

func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode payload failed: %w", err)
	}
	if ev.Kind == "" {
		return Event{}, fmt.Errorf("decode payload failed: missing kind")
	}
	return ev, nil
}
