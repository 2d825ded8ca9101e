package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "disjoint",
			a:    NewInterval(at(9, 0), at(10, 0)),
			b:    NewInterval(at(11, 0), at(12, 0)),
			want: false,
		},
		{
			name: "back to back do not conflict",
			a:    NewInterval(at(9, 0), at(10, 0)),
			b:    NewInterval(at(10, 0), at(11, 0)),
			want: false,
		},
		{
			name: "contained",
			a:    NewInterval(at(9, 0), at(11, 0)),
			b:    NewInterval(at(10, 0), at(10, 30)),
			want: true,
		},
		{
			name: "partial overlap",
			a:    NewInterval(at(9, 0), at(10, 30)),
			b:    NewInterval(at(10, 0), at(11, 0)),
			want: true,
		},
		{
			name: "identical",
			a:    NewInterval(at(9, 0), at(10, 0)),
			b:    NewInterval(at(9, 0), at(10, 0)),
			want: true,
		},
		{
			name: "zero duration never overlaps",
			a:    NewInterval(at(9, 30), at(9, 30)),
			b:    NewInterval(at(9, 0), at(10, 0)),
			want: false,
		},
		{
			name: "inverted interval never overlaps",
			a:    NewInterval(at(10, 0), at(9, 0)),
			b:    NewInterval(at(9, 0), at(10, 0)),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, NewInterval(at(9, 0), at(9, 1)).IsValid())
	assert.False(t, NewInterval(at(9, 0), at(9, 0)).IsValid())
	assert.False(t, NewInterval(at(10, 0), at(9, 0)).IsValid())
}
