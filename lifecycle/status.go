package lifecycle

import (
	"fmt"
	"slices"
	"strings"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusBorrowed  Status = "borrowed"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusScheduled, StatusBorrowed, StatusReturned, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Terminal states accept no further transitions.
func (s Status) Terminal() bool { return s == StatusReturned || s == StatusCancelled }

type BorrowType string

const (
	BorrowDuringClass  BorrowType = "during-class"
	BorrowTeaching     BorrowType = "teaching"
	BorrowOutsideClass BorrowType = "outside-class"
)

func ParseBorrowType(s string) (BorrowType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(BorrowDuringClass):
		return BorrowDuringClass, nil
	case string(BorrowTeaching):
		return BorrowTeaching, nil
	case string(BorrowOutsideClass), "outside":
		return BorrowOutsideClass, nil
	}
	return "", fmt.Errorf("%w: unknown borrow type %q", ErrValidation, s)
}

type Action string

const (
	ActionCreate  Action = "create"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
	ActionReturn  Action = "return"
)

type transition struct {
	from []Status
	to   Status
}

// transitions lists every legal source state per action. Anything else is ErrInvalidState.
var transitions = map[Action]transition{
	ActionConfirm: {from: []Status{StatusScheduled}, to: StatusBorrowed},
	ActionCancel:  {from: []Status{StatusScheduled}, to: StatusCancelled},
	ActionReturn:  {from: []Status{StatusScheduled, StatusBorrowed}, to: StatusReturned},
}

// Next returns the target status of applying a to a transaction in status from.
func Next(from Status, a Action) (Status, error) {
	t, ok := transitions[a]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidState, a)
	}
	if !slices.Contains(t.from, from) {
		return "", fmt.Errorf("%w: cannot %s a %s transaction", ErrInvalidState, a, from)
	}
	return t.to, nil
}
