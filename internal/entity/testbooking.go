package entity

import "time"

type TestBookingStatus string

const (
	TestBookingStatusPending TestBookingStatus = "PENDING"
	TestBookingStatusPaid    TestBookingStatus = "PAID"
)

// TestBooking lives in a namespace fully separate from real bookings and is
// used for live-environment smoke tests. The slot ledger never reads these
// rows. Unlike real bookings they are auto-promoted to PAID and physically
// deleted on their own timers.
type TestBooking struct {
	ID           int64             `json:"id" db:"id"`
	TrailerType  TrailerType       `json:"trailer_type" db:"trailer_type"`
	RentalKind   RentalKind        `json:"rental_kind" db:"rental_kind"`
	Price        int               `json:"price" db:"price"`
	Status       TestBookingStatus `json:"status" db:"status"`
	SMSTarget    string            `json:"sms_target,omitempty" db:"sms_target"`
	PromoteDueAt time.Time         `json:"promote_due_at" db:"promote_due_at"`
	DeleteDueAt  time.Time         `json:"delete_due_at" db:"delete_due_at"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}
