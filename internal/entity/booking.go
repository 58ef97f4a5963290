package entity

import (
	"fmt"
	"time"
)

type TrailerType string

const (
	TrailerTypeOpenRack TrailerType = "OPEN_RACK"
	TrailerTypeCovered  TrailerType = "COVERED"
)

// Capacity is the number of physical units per trailer type.
const Capacity = 2

func (t TrailerType) Valid() bool {
	return t == TrailerTypeOpenRack || t == TrailerTypeCovered
}

type RentalKind string

const (
	RentalKindShort   RentalKind = "SHORT"
	RentalKindFullDay RentalKind = "FULL_DAY"
)

// ShortRentalDuration is the fixed length of a SHORT rental.
const ShortRentalDuration = 2 * time.Hour

func (k RentalKind) Valid() bool {
	return k == RentalKindShort || k == RentalKindFullDay
}

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// NotificationChannel identifies a per-booking sent-at marker. A channel is
// claimed at most once per booking, which backs the at-most-once hook
// guarantee of the state machine.
type NotificationChannel string

const (
	ChannelConfirmed NotificationChannel = "confirmed"
	ChannelCancelled NotificationChannel = "cancelled"
)

type Booking struct {
	ID               int64         `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	TrailerType      TrailerType   `json:"trailer_type" db:"trailer_type"`
	RentalKind       RentalKind    `json:"rental_kind" db:"rental_kind"`
	StartAt          time.Time     `json:"start_at" db:"start_at"`
	EndAt            time.Time     `json:"end_at" db:"end_at"`
	Price            int           `json:"price" db:"price"`
	Status           BookingStatus `json:"status" db:"status"`
	PaymentReference string        `json:"payment_reference,omitempty" db:"payment_reference"`
	CustomerPhone    string        `json:"customer_phone,omitempty" db:"customer_phone"`
	ExpiresAt        time.Time     `json:"expires_at" db:"expires_at"`
	ConfirmedSentAt  *time.Time    `json:"confirmed_sent_at,omitempty" db:"confirmed_sent_at"`
	CancelledSentAt  *time.Time    `json:"cancelled_sent_at,omitempty" db:"cancelled_sent_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// Window returns the booked time interval.
func (b *Booking) Window() Window {
	return Window{Start: b.StartAt, End: b.EndAt}
}

// Terminal reports whether the booking reached an immutable state.
func (b *Booking) Terminal() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCancelled
}

// Active reports whether the booking occupies capacity at the given time:
// confirmed, or pending with an unexpired hold. Cancelled bookings never
// count.
func (b *Booking) Active(now time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed:
		return true
	case BookingStatusPending:
		return b.ExpiresAt.IsZero() || !b.ExpiresAt.Before(now)
	default:
		return false
	}
}

// BookingReferenceFor builds the immutable human-readable reference for a
// booking. It is assigned exactly once, inside the reserve transaction.
func BookingReferenceFor(createdAt time.Time, bookingID int64) string {
	return fmt.Sprintf("DHS-%s-%06d", createdAt.Format("20060102"), bookingID)
}
