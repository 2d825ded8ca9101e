package models

import "time"

// Booking is a reservation of one room for one contiguous time interval.
// Start/End form a half-open interval [Start, End): a booking ending at T
// never conflicts with one starting at T.
type Booking struct {
	ID                  string    `json:"id"`
	RoomID              int64     `json:"room_id"`
	RoomName            string    `json:"room_name"`
	UserEmail           string    `json:"user_email"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	Status              string    `json:"status"` // pending, confirmed, cancelled
	Participants        []string  `json:"participants,omitempty"`
	RemindMe            bool      `json:"remind_me"`
	ReminderLeadMinutes int       `json:"reminder_lead_minutes"`
	ReminderSent        bool      `json:"reminder_sent"`
	AttachmentID        string    `json:"attachment_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Version             int64     `json:"version"`
}

// ReminderDueAt returns the instant the reminder becomes due.
func (b *Booking) ReminderDueAt() time.Time {
	lead := b.ReminderLeadMinutes
	if lead <= 0 {
		lead = DefaultReminderLeadMinutes
	}
	return b.Start.Add(-time.Duration(lead) * time.Minute)
}

// IsReminderDue reports whether a reminder should go out at now.
// Once the meeting has started the reminder is pointless and never sent.
func (b *Booking) IsReminderDue(now time.Time) bool {
	if !b.RemindMe || b.ReminderSent || b.Status == StatusCancelled {
		return false
	}
	if now.Before(b.ReminderDueAt()) {
		return false
	}
	return now.Before(b.Start)
}
