package schedule

import "roomly/internal/models"

// FirstConflict returns the first confirmed booking whose interval overlaps
// the candidate, or nil when none does. A booking matching excludeID is
// skipped so that an edit is not counted against itself. Only confirmed
// bookings participate in the mutual-exclusion invariant; pending and
// cancelled ones never block.
func FirstConflict(existing []*models.Booking, candidate Interval, excludeID string) *models.Booking {
	for _, b := range existing {
		if b == nil || b.Status != models.StatusConfirmed {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if candidate.Overlaps(NewInterval(b.Start, b.End)) {
			return b
		}
	}
	return nil
}

// HasConflict reports whether any confirmed booking overlaps the candidate.
func HasConflict(existing []*models.Booking, candidate Interval, excludeID string) bool {
	return FirstConflict(existing, candidate, excludeID) != nil
}
