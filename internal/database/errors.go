package database

import "errors"

// Sentinel errors surfaced to the API layer. The booking UI distinguishes
// these so a user can correct the specific problem instead of retrying
// blindly.
var (
	ErrInvalidInterval        = errors.New("invalid interval: end must be after start")
	ErrConflict               = errors.New("room is already booked for this time slot")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomInactive           = errors.New("room is not active")
	ErrPastStart              = errors.New("booking cannot start in the past")
	ErrTooFarAhead            = errors.New("booking starts too far in the future")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
