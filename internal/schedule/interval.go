package schedule

import "time"

// Interval is a half-open time range [Start, End). The end instant itself is
// not part of the range, which makes back-to-back bookings non-conflicting.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval without validating it; use IsValid.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// IsValid reports whether the interval has positive duration.
func (i Interval) IsValid() bool {
	return i.End.After(i.Start)
}

// Duration returns End-Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals intersect.
//
// This is the single place interval-boundary semantics are decided; every
// conflict check must route through it instead of re-deriving comparisons.
// [a,b) and [c,d) overlap iff a < d && c < b, so an interval ending exactly
// when another starts does not overlap it, and zero-duration intervals never
// overlap anything.
func (i Interval) Overlaps(other Interval) bool {
	if !i.IsValid() || !other.IsValid() {
		return false
	}
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}
