package lifecycle

import "errors"

var (
	ErrNotFound            = errors.New("borrow transaction not found")
	ErrInvalidState        = errors.New("invalid transaction state")
	ErrConcurrencyConflict = errors.New("concurrency conflict, transaction was modified")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrReasonRequired      = errors.New("cancellation reason is required")
	ErrValidation          = errors.New("invalid borrow request")
)
