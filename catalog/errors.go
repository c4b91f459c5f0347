package catalog

import "errors"

var (
	ErrInvalidEquipment     = errors.New("invalid equipment")
	ErrDuplicateAssetID     = errors.New("asset ids must be unique")
	ErrInvalidRoom          = errors.New("invalid room")
	ErrRoomUnavailable      = errors.New("room is not available")
	ErrInvalidBookingWindow = errors.New("booking must end after it starts")
	ErrRoomOverlap          = errors.New("room is already booked in that window")
	ErrInvalidRange         = errors.New("invalid date range")
)
