package models

import "time"

// Room is a bookable resource. Rooms are owned by administrative tooling and
// seeded from configuration; the booking engine treats them as read-only.
type Room struct {
	ID        int64     `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Capacity  int64     `yaml:"capacity" json:"capacity"`
	Equipment []string  `yaml:"equipment" json:"equipment,omitempty"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	SortOrder int64     `yaml:"sort_order" json:"sort_order"`
	CreatedAt time.Time `yaml:"-" json:"created_at"`
	UpdatedAt time.Time `yaml:"-" json:"updated_at"`
}
