package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomly/internal/database"
	"roomly/internal/domain"
	"roomly/internal/events"
	"roomly/internal/metrics"
	"roomly/internal/models"
	"roomly/internal/schedule"

	"github.com/rs/zerolog"
)

// RoomAvailability is the per-room verdict of an availability query.
type RoomAvailability struct {
	Room      *models.Room `json:"room"`
	Available bool         `json:"available"`
	Reason    string       `json:"reason,omitempty"`
}

// BookingService owns the booking lifecycle: interval validation, conflict
// detection, creation, rescheduling and cancellation. All reads and writes
// of booking rows flow through the injected store.
type BookingService struct {
	store  domain.BookingStore
	rooms  domain.RoomCatalog
	locker domain.RoomLocker
	events domain.EventPublisher
	logger zerolog.Logger

	maxBookingDays int
	clock          func() time.Time
}

func NewBookingService(
	store domain.BookingStore,
	rooms domain.RoomCatalog,
	locker domain.RoomLocker,
	bus domain.EventPublisher,
	logger zerolog.Logger,
	maxBookingDays int,
) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &BookingService{
		store:          store,
		rooms:          rooms,
		locker:         locker,
		events:         bus,
		logger:         logger,
		maxBookingDays: maxBookingDays,
		clock:          time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *BookingService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// ValidateInterval rejects intervals a booking may never carry: end not after
// start, start already in the past, or start beyond the booking horizon.
func (s *BookingService) ValidateInterval(start, end time.Time) error {
	interval := schedule.NewInterval(start, end)
	if !interval.IsValid() {
		return database.ErrInvalidInterval
	}

	now := s.clock().UTC()
	if start.Before(now) {
		return database.ErrPastStart
	}
	if start.After(now.AddDate(0, 0, s.maxBookingDays)) {
		return database.ErrTooFarAhead
	}
	return nil
}

// HasConflict reports whether any confirmed booking for the room overlaps
// [start, end). excludeID removes one booking from consideration so an edit
// does not collide with its own previous interval.
func (s *BookingService) HasConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID string) (*models.Booking, error) {
	existing, err := s.store.ListConfirmedBookingsForRoom(ctx, roomID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("load bookings for room %d: %w", roomID, err)
	}
	return schedule.FirstConflict(existing, schedule.NewInterval(start, end), excludeID), nil
}

// CreateBooking validates the request, checks the target room for conflicts
// and persists the booking. The store repeats the conflict check inside the
// insert transaction; the per-room lock narrows the window before it.
func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := s.ValidateInterval(booking.Start, booking.End); err != nil {
		return err
	}

	room, err := s.rooms.GetRoom(ctx, booking.RoomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return database.ErrRoomInactive
	}
	booking.RoomName = room.Name

	release, err := s.lockRoom(ctx, booking.RoomID)
	if err != nil {
		return err
	}
	defer release()

	conflicting, err := s.HasConflict(ctx, booking.RoomID, booking.Start, booking.End, "")
	if err != nil {
		return err
	}
	if conflicting != nil {
		metrics.IncBookingConflict()
		s.logger.Info().
			Int64("room_id", booking.RoomID).
			Str("conflicting_booking", conflicting.ID).
			Time("start", booking.Start).
			Time("end", booking.End).
			Msg("booking rejected, slot taken")
		return database.ErrConflict
	}

	if err := s.store.CreateBookingWithConflictCheck(ctx, booking); err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncBookingConflict()
		}
		return err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Str("booking_id", booking.ID).
		Int64("room_id", booking.RoomID).
		Str("user", booking.UserEmail).
		Time("start", booking.Start).
		Msg("booking created")

	s.publishBookingEvent(events.EventBookingCreated, booking)
	return nil
}

// EditBooking reschedules or rewrites a booking. The booking's own id is
// excluded from the conflict check, and fromVersion guards against a
// concurrent edit of the same row.
func (s *BookingService) EditBooking(ctx context.Context, booking *models.Booking, fromVersion int64) error {
	if err := s.ValidateInterval(booking.Start, booking.End); err != nil {
		return err
	}

	room, err := s.rooms.GetRoom(ctx, booking.RoomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return database.ErrRoomInactive
	}
	booking.RoomName = room.Name

	release, err := s.lockRoom(ctx, booking.RoomID)
	if err != nil {
		return err
	}
	defer release()

	conflicting, err := s.HasConflict(ctx, booking.RoomID, booking.Start, booking.End, booking.ID)
	if err != nil {
		return err
	}
	if conflicting != nil {
		metrics.IncBookingConflict()
		return database.ErrConflict
	}

	if err := s.store.UpdateBookingWithConflictCheck(ctx, booking, fromVersion); err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncBookingConflict()
		}
		return err
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Int64("room_id", booking.RoomID).
		Int64("version", booking.Version).
		Msg("booking updated")

	s.publishBookingEvent(events.EventBookingUpdated, booking)
	return nil
}

// CancelBooking moves a booking to cancelled. Cancellation is always allowed
// regardless of the booking's interval, and immediately frees the slot.
func (s *BookingService) CancelBooking(ctx context.Context, id string) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if booking.Status == models.StatusCancelled {
		return nil
	}

	if err := s.store.UpdateBookingStatus(ctx, id, models.StatusCancelled); err != nil {
		return err
	}

	s.logger.Info().
		Str("booking_id", id).
		Int64("room_id", booking.RoomID).
		Msg("booking cancelled")

	booking.Status = models.StatusCancelled
	s.publishBookingEvent(events.EventBookingCancelled, booking)
	return nil
}

// GetBooking returns one booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// GetAvailability fans the conflict check out over every active room and
// returns a verdict per room for the requested slot.
func (s *BookingService) GetAvailability(ctx context.Context, start, end time.Time) ([]RoomAvailability, error) {
	if !schedule.NewInterval(start, end).IsValid() {
		return nil, database.ErrInvalidInterval
	}

	rooms, err := s.rooms.GetActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rooms: %w", err)
	}

	result := make([]RoomAvailability, 0, len(rooms))
	for _, room := range rooms {
		conflicting, err := s.HasConflict(ctx, room.ID, start, end, "")
		if err != nil {
			return nil, err
		}

		entry := RoomAvailability{Room: room, Available: conflicting == nil}
		if conflicting != nil {
			entry.Reason = models.AvailabilityReasonBooked
		}
		result = append(result, entry)
	}
	return result, nil
}

// lockRoom takes the per-room advisory lock and returns its release func.
// A held lock means another writer is mid-flight on the same room, which the
// caller reports as a conflict. Locker transport errors are logged and the
// operation proceeds; the store's transactional re-check still holds the
// invariant.
func (s *BookingService) lockRoom(ctx context.Context, roomID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	ttl := time.Duration(models.RoomLockTTLSeconds) * time.Second
	acquired, err := s.locker.AcquireRoomLock(ctx, roomID, ttl)
	if err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("room lock unavailable, relying on transactional check")
		return func() {}, nil
	}
	if !acquired {
		return func() {}, database.ErrConflict
	}

	return func() {
		if err := s.locker.ReleaseRoomLock(ctx, roomID); err != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("room lock release failed")
		}
	}, nil
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking) {
	if s.events == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		RoomID:    booking.RoomID,
		RoomName:  booking.RoomName,
		UserEmail: booking.UserEmail,
		Title:     booking.Title,
		Status:    booking.Status,
		Start:     booking.Start,
		End:       booking.End,
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
