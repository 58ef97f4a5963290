package entity

import "time"

// AdminBlock is an administrator-imposed blackout window. An overlapping
// block makes a slot unavailable regardless of remaining capacity.
type AdminBlock struct {
	ID          int64       `json:"id" db:"id"`
	TrailerType TrailerType `json:"trailer_type" db:"trailer_type"`
	StartAt     time.Time   `json:"start_at" db:"start_at"`
	EndAt       time.Time   `json:"end_at" db:"end_at"`
	Reason      string      `json:"reason" db:"reason"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

func (b *AdminBlock) Window() Window {
	return Window{Start: b.StartAt, End: b.EndAt}
}
