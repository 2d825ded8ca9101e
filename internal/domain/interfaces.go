package domain

import (
	"context"
	"time"

	"roomly/internal/models"
)

// BookingStore is the persistence boundary the booking engine depends on.
// It is the sole mutator of booking status and the reminder_sent flag.
type BookingStore interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CreateBookingWithConflictCheck(ctx context.Context, booking *models.Booking) error
	UpdateBookingWithConflictCheck(ctx context.Context, booking *models.Booking, fromVersion int64) error
	UpdateBookingStatus(ctx context.Context, id string, status string) error
	ListConfirmedBookingsForRoom(ctx context.Context, roomID int64, windowStart, windowEnd time.Time) ([]*models.Booking, error)
	ListBookingsStartingInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Booking, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// RoomCatalog exposes the read-only room directory.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetActiveRooms(ctx context.Context) ([]*models.Room, error)
}

// Notifier delivers a rendered message to one recipient. Transport failures
// are expected and must never abort the remainder of a scheduler tick.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string, calendar []byte) error
}

// RoomLocker serializes the check-then-write sequence per room, narrowing the
// window in which two concurrent requests can both observe "no conflict".
type RoomLocker interface {
	AcquireRoomLock(ctx context.Context, roomID int64, ttl time.Duration) (bool, error)
	ReleaseRoomLock(ctx context.Context, roomID int64) error
}

// EventPublisher fans booking lifecycle events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
