package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomly/internal/models"
	"roomly/internal/schedule"

	"github.com/google/uuid"
)

const bookingColumns = `id, room_id, user_email, title, description, start_time, end_time,
                 status, participants, remind_me, reminder_lead_minutes, reminder_sent,
                 attachment_id, created_at, updated_at, version`

// CreateBooking inserts a booking without conflict validation. Callers that
// need the non-overlap invariant enforced atomically use
// CreateBookingWithConflictCheck instead.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	prepareNewBooking(booking)

	participants, err := encodeParticipants(booking.Participants)
	if err != nil {
		return err
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.db.ExecContext(ctx, query,
		booking.ID, booking.RoomID, booking.UserEmail, booking.Title, booking.Description,
		booking.Start, booking.End, booking.Status, participants,
		booking.RemindMe, booking.ReminderLeadMinutes, booking.ReminderSent,
		booking.AttachmentID, booking.CreatedAt, booking.UpdatedAt, booking.Version,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// CreateBookingWithConflictCheck re-validates the non-overlap invariant inside
// the insert transaction. The serving path already ran an optimistic conflict
// check; this second check closes most of the read-then-write window between
// concurrent requests for the same room.
func (db *DB) CreateBookingWithConflictCheck(ctx context.Context, booking *models.Booking) error {
	prepareNewBooking(booking)

	participants, err := encodeParticipants(booking.Participants)
	if err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := queryConfirmedForRoom(ctx, tx, booking.RoomID, booking.Start, booking.End)
	if err != nil {
		return fmt.Errorf("conflict re-check: %w", err)
	}
	if schedule.HasConflict(existing, schedule.NewInterval(booking.Start, booking.End), "") {
		return ErrConflict
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		booking.ID, booking.RoomID, booking.UserEmail, booking.Title, booking.Description,
		booking.Start, booking.End, booking.Status, participants,
		booking.RemindMe, booking.ReminderLeadMinutes, booking.ReminderSent,
		booking.AttachmentID, booking.CreatedAt, booking.UpdatedAt, booking.Version,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return tx.Commit()
}

// UpdateBookingWithConflictCheck rewrites a booking's mutable fields after
// re-validating the invariant with the booking's own id excluded, so its
// prior interval is not counted against itself. The version guard rejects
// lost updates between read and write.
func (db *DB) UpdateBookingWithConflictCheck(ctx context.Context, booking *models.Booking, fromVersion int64) error {
	booking.Start = booking.Start.UTC()
	booking.End = booking.End.UTC()

	participants, err := encodeParticipants(booking.Participants)
	if err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := queryConfirmedForRoom(ctx, tx, booking.RoomID, booking.Start, booking.End)
	if err != nil {
		return fmt.Errorf("conflict re-check: %w", err)
	}
	if schedule.HasConflict(existing, schedule.NewInterval(booking.Start, booking.End), booking.ID) {
		return ErrConflict
	}

	now := time.Now().UTC()
	query := `UPDATE bookings SET
                  room_id = ?, title = ?, description = ?, start_time = ?, end_time = ?,
                  participants = ?, remind_me = ?, reminder_lead_minutes = ?,
                  attachment_id = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		booking.RoomID, booking.Title, booking.Description, booking.Start, booking.End,
		participants, booking.RemindMe, booking.ReminderLeadMinutes,
		booking.AttachmentID, now, booking.ID, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, getErr := getBookingTx(ctx, tx, booking.ID); errors.Is(getErr, ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	booking.UpdatedAt = now
	booking.Version = fromVersion + 1
	return nil
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return booking, nil
}

// UpdateBookingStatus sets the lifecycle status. A cancelled booking is
// immediately invisible to conflict checks and reminder scans.
func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ?, version = version + 1 WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdateBookingStatusWithVersion is the optimistic variant of
// UpdateBookingStatus.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?`,
		status, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, getErr := db.GetBooking(ctx, id); errors.Is(getErr, ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

// ListConfirmedBookingsForRoom returns confirmed bookings for a room whose
// intervals touch the [windowStart, windowEnd) window. The SQL filter is a
// loose pre-filter; the overlap decision itself belongs to the schedule
// package.
func (db *DB) ListConfirmedBookingsForRoom(ctx context.Context, roomID int64, windowStart, windowEnd time.Time) ([]*models.Booking, error) {
	bookings, err := queryConfirmedForRoom(ctx, db.db, roomID, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings for room %d: %w", roomID, err)
	}
	return bookings, nil
}

// ListBookingsStartingInWindow returns bookings with start_time inside
// [windowStart, windowEnd], regardless of status. The reminder scheduler
// applies its own skip rules per booking.
func (db *DB) ListBookingsStartingInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_time >= ? AND start_time <= ?
              ORDER BY start_time ASC`

	rows, err := db.db.QueryContext(ctx, query, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("list bookings starting in window: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// MarkReminderSent durably flips reminder_sent to true. Idempotent: repeated
// calls are harmless and the flag never resets.
func (db *DB) MarkReminderSent(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE bookings SET reminder_sent = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryConfirmedForRoom(ctx context.Context, q querier, roomID int64, windowStart, windowEnd time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND status = ? AND start_time < ? AND end_time > ?
              ORDER BY start_time ASC`

	rows, err := q.QueryContext(ctx, query, roomID, models.StatusConfirmed, windowEnd, windowStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func getBookingTx(ctx context.Context, tx *sql.Tx, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var description, participants, attachmentID sql.NullString
	err := row.Scan(
		&b.ID, &b.RoomID, &b.UserEmail, &b.Title, &description,
		&b.Start, &b.End, &b.Status, &participants,
		&b.RemindMe, &b.ReminderLeadMinutes, &b.ReminderSent,
		&attachmentID, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Description = description.String
	b.AttachmentID = attachmentID.String
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	if participants.Valid && participants.String != "" {
		if err := json.Unmarshal([]byte(participants.String), &b.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	return &b, nil
}

func prepareNewBooking(booking *models.Booking) {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.StatusConfirmed
	}
	if booking.ReminderLeadMinutes <= 0 {
		booking.ReminderLeadMinutes = models.DefaultReminderLeadMinutes
	}
	booking.Start = booking.Start.UTC()
	booking.End = booking.End.UTC()
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Version == 0 {
		booking.Version = 1
	}
}

func encodeParticipants(participants []string) (string, error) {
	if len(participants) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(participants)
	if err != nil {
		return "", fmt.Errorf("encode participants: %w", err)
	}
	return string(raw), nil
}
