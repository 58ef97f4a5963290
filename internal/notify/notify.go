// Package notify fans booking lifecycle events out to the configured
// channels: structured log, signed webhook and SMS. Events arrive through
// the queue, so a slow or failing channel never blocks a booking
// transition.
package notify

import "context"

type EventKind string

const (
	EventBookingConfirmed EventKind = "booking_confirmed"
	EventBookingCancelled EventKind = "booking_cancelled"
	EventTestBookingPaid  EventKind = "test_booking_paid"
)

// Event is the channel-independent payload for one notification.
type Event struct {
	Kind             EventKind `json:"kind"`
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference,omitempty"`
	TrailerType      string    `json:"trailer_type"`
	RentalKind       string    `json:"rental_kind"`
	StartAt          string    `json:"start_at"`
	EndAt            string    `json:"end_at"`
	Price            int       `json:"price"`
	Phone            string    `json:"phone,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

// Provider delivers an event over one channel. Providers must tolerate
// redelivery: the queue retries on error.
type Provider interface {
	Name() string
	Notify(ctx context.Context, event *Event) error
}
