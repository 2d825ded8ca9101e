package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roomly/internal/domain"
	"roomly/internal/events"
	"roomly/internal/metrics"
	"roomly/internal/models"

	"github.com/rs/zerolog"
)

// ReminderWorker periodically scans upcoming bookings and dispatches reminder
// notifications. A reminder is sent once per booking: the sent flag is
// persisted immediately after a successful dispatch, before the next booking
// is examined. Dispatch failures are logged and retried on a later tick.
type ReminderWorker struct {
	store    domain.BookingStore
	notifier domain.Notifier
	events   domain.EventPublisher
	logger   zerolog.Logger

	tick        time.Duration
	lookahead   time.Duration
	defaultLead int
	displayLoc  *time.Location
	clock       func() time.Time
}

func NewReminderWorker(
	store domain.BookingStore,
	notifier domain.Notifier,
	bus domain.EventPublisher,
	logger zerolog.Logger,
	tick, lookahead time.Duration,
	defaultLead int,
	displayLoc *time.Location,
) *ReminderWorker {
	if tick <= 0 {
		tick = time.Duration(models.DefaultSchedulerTickSeconds) * time.Second
	}
	if lookahead <= 0 {
		lookahead = time.Duration(models.DefaultLookaheadDays) * 24 * time.Hour
	}
	if defaultLead <= 0 {
		defaultLead = models.DefaultReminderLeadMinutes
	}
	if displayLoc == nil {
		displayLoc = time.UTC
	}
	return &ReminderWorker{
		store:       store,
		notifier:    notifier,
		events:      bus,
		logger:      logger,
		tick:        tick,
		lookahead:   lookahead,
		defaultLead: defaultLead,
		displayLoc:  displayLoc,
		clock:       time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (w *ReminderWorker) SetClock(clock func() time.Time) {
	w.clock = clock
}

// Start runs the scan loop until the context is cancelled. The first scan
// happens one tick after start, not immediately.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Info().
		Dur("tick", w.tick).
		Dur("lookahead", w.lookahead).
		Msg("reminder scheduler started")

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			if err := w.RunTick(ctx); err != nil {
				w.logger.Error().Err(err).Msg("reminder scan failed")
			}
		}
	}
}

// RunTick executes one scan. A store read failure aborts the whole tick (the
// next tick retries from scratch); a dispatch failure only skips the one
// booking.
func (w *ReminderWorker) RunTick(ctx context.Context) error {
	metrics.IncSchedulerTick()

	now := w.clock().UTC()
	bookings, err := w.store.ListBookingsStartingInWindow(ctx, now, now.Add(w.lookahead))
	if err != nil {
		return fmt.Errorf("list upcoming bookings: %w", err)
	}

	var sent, failed, markFailed int
	skipped := make(map[string]int)
	for _, booking := range bookings {
		if reason := w.skipReason(booking, now); reason != "" {
			skipped[reason]++
			continue
		}

		if err := w.dispatch(ctx, booking); err != nil {
			failed++
			metrics.IncReminderFailure()
			w.logger.Error().Err(err).
				Str("booking_id", booking.ID).
				Str("user", booking.UserEmail).
				Time("start", booking.Start).
				Msg("reminder dispatch failed, will retry next tick")
			continue
		}

		// Persist the flag before moving on so a crash mid-scan cannot
		// widen the duplicate window beyond the one in-flight booking.
		if err := w.store.MarkReminderSent(ctx, booking.ID); err != nil {
			markFailed++
			w.logger.Error().Err(err).
				Str("booking_id", booking.ID).
				Msg("reminder sent but flag not persisted, duplicate possible")
			continue
		}

		sent++
		metrics.IncReminderSent()
		if w.events != nil {
			_ = w.events.PublishJSON(events.EventReminderSent, events.BookingEventPayload{
				BookingID: booking.ID,
				RoomID:    booking.RoomID,
				RoomName:  booking.RoomName,
				UserEmail: booking.UserEmail,
				Title:     booking.Title,
				Status:    booking.Status,
				Start:     booking.Start,
				End:       booking.End,
			})
		}
	}

	w.logger.Info().
		Int("scanned", len(bookings)).
		Int("sent", sent).
		Int("failed", failed).
		Int("mark_failed", markFailed).
		Interface("skipped", skipped).
		Msg("reminder scan complete")
	return nil
}

// skipReason mirrors models.Booking.IsReminderDue but names why a booking was
// passed over, for the per-tick audit line, and substitutes the worker's
// configured lead for bookings that never set one. Empty means due.
func (w *ReminderWorker) skipReason(b *models.Booking, now time.Time) string {
	switch {
	case b.Status == models.StatusCancelled:
		return "cancelled"
	case !b.RemindMe:
		return "opted_out"
	case b.ReminderSent:
		return "already_sent"
	case now.Before(w.reminderDueAt(b)):
		return "not_due_yet"
	case !now.Before(b.Start):
		return "meeting_started"
	default:
		return ""
	}
}

// reminderDueAt applies the configured default lead when the booking carries
// none.
func (w *ReminderWorker) reminderDueAt(b *models.Booking) time.Time {
	lead := b.ReminderLeadMinutes
	if lead <= 0 {
		lead = w.defaultLead
	}
	return b.Start.Add(-time.Duration(lead) * time.Minute)
}

func (w *ReminderWorker) dispatch(ctx context.Context, booking *models.Booking) error {
	subject, body := renderReminder(booking, w.clock().UTC(), w.displayLoc)
	return w.notifier.Send(ctx, booking.UserEmail, subject, body, buildCalendarInvite(booking))
}

// renderReminder builds the reminder subject and body for one booking, with
// times formatted in the configured display timezone.
func renderReminder(booking *models.Booking, now time.Time, loc *time.Location) (string, string) {
	minutesLeft := int(booking.Start.Sub(now).Round(time.Minute) / time.Minute)
	if minutesLeft < 1 {
		minutesLeft = 1
	}

	subject := fmt.Sprintf("Reminder: %s in %d min", booking.Title, minutesLeft)

	var b strings.Builder
	fmt.Fprintf(&b, "Your meeting %q starts at %s.\n", booking.Title, booking.Start.In(loc).Format("15:04 MST, Mon 02 Jan"))
	if booking.RoomName != "" {
		fmt.Fprintf(&b, "Room: %s\n", booking.RoomName)
	}
	if booking.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", booking.Description)
	}
	if len(booking.Participants) > 0 {
		fmt.Fprintf(&b, "Participants: %s\n", strings.Join(booking.Participants, ", "))
	}
	return subject, b.String()
}

// buildCalendarInvite renders a minimal iCalendar event so mail clients show
// the meeting inline.
func buildCalendarInvite(booking *models.Booking) []byte {
	const stamp = "20060102T150405Z"
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//roomly//booking//EN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:%s@roomly\r\n", booking.ID)
	fmt.Fprintf(&b, "DTSTART:%s\r\n", booking.Start.UTC().Format(stamp))
	fmt.Fprintf(&b, "DTEND:%s\r\n", booking.End.UTC().Format(stamp))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", icalEscape(booking.Title))
	if booking.RoomName != "" {
		fmt.Fprintf(&b, "LOCATION:%s\r\n", icalEscape(booking.RoomName))
	}
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func icalEscape(s string) string {
	replacer := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return replacer.Replace(s)
}
