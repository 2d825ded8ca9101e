package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	// DefaultReminderLeadMinutes is used when a booking opts into reminders
	// without an explicit lead time.
	DefaultReminderLeadMinutes = 15

	// DefaultSchedulerTickSeconds is the reminder scan interval.
	DefaultSchedulerTickSeconds = 120

	// DefaultLookaheadDays bounds the reminder scan window.
	DefaultLookaheadDays = 7

	// DefaultMaxBookingDays limits how far ahead a booking may start.
	DefaultMaxBookingDays = 365

	// RoomLockTTLSeconds is the lifetime of a per-room advisory write lock.
	RoomLockTTLSeconds = 10

	// RateLimitRPS and RateLimitBurst are API rate limit defaults.
	RateLimitRPS   = 10
	RateLimitBurst = 20
)

// AvailabilityReasonBooked is the fixed human-readable reason attached to an
// unavailable room in an availability query.
const AvailabilityReasonBooked = "already booked for this time slot"
