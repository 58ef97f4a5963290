// Package service holds the business core: the slot ledger, the booking
// state machine, payment orchestration, the expiry sweep and the
// ephemeral test-booking namespace.
package service

import (
	"context"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/dalsjofors/hyrservice/internal/swish"
)

// AvailabilityRequest describes one slot to check. StartAt is only
// consulted for SHORT rentals.
type AvailabilityRequest struct {
	TrailerType entity.TrailerType
	RentalKind  entity.RentalKind
	Date        time.Time
	StartAt     time.Time
}

// AvailabilityResult reports capacity and block state independently, so
// the caller can tell "full" apart from "blocked for maintenance".
type AvailabilityResult struct {
	Available   bool   `json:"available"`
	Remaining   int    `json:"remaining"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"blockReason,omitempty"`
}

type ReserveRequest struct {
	TrailerType   entity.TrailerType
	RentalKind    entity.RentalKind
	Date          time.Time
	StartAt       time.Time
	CustomerPhone string
}

// PaymentResult carries everything the customer needs to pay plus whether
// an earlier payment request was reused.
type PaymentResult struct {
	PaymentReference string `json:"paymentReference"`
	QRPayload        string `json:"qrPayload"`
	AppLink          string `json:"appLink"`
	Idempotent       bool   `json:"idempotent"`
}

// SlotLedger answers availability and pricing questions and hands out
// PENDING holds. Reserve is the only way a booking row comes into being.
type SlotLedger interface {
	Availability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error)
	Price(kind entity.RentalKind, date time.Time) (int, error)
	Reserve(ctx context.Context, req ReserveRequest) (*entity.Booking, error)

	GetBooking(ctx context.Context, id int64) (*entity.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*entity.Booking, error)
	ListBookings(ctx context.Context, status entity.BookingStatus) ([]*entity.Booking, error)

	CreateBlock(ctx context.Context, block *entity.AdminBlock) error
	ListBlocks(ctx context.Context, window *entity.Window) ([]*entity.AdminBlock, error)
	DeleteBlock(ctx context.Context, id int64) error
}

// BookingStateMachine owns the terminal transitions. Both operations are
// idempotent for repeats of the same outcome and reject the opposite
// terminal state with ErrIllegalTransition.
type BookingStateMachine interface {
	ConfirmBooking(ctx context.Context, id int64, paymentReference string) (*entity.Booking, error)
	CancelBooking(ctx context.Context, id int64, reason string) (*entity.Booking, error)
}

// ExpirySweeper reclaims capacity held by expired PENDING bookings. It is
// invoked inline at the start of ledger-adjacent requests, never by a
// timer.
type ExpirySweeper interface {
	SweepOnce(ctx context.Context, now time.Time) (int, error)
}

// PaymentOrchestrator drives a booking through the payment flow. Status
// is reported in the payment vocabulary (PENDING, PAID, FAILED), never in
// booking statuses.
type PaymentOrchestrator interface {
	CreatePaymentRequest(ctx context.Context, bookingID int64) (*PaymentResult, error)
	PaymentStatus(ctx context.Context, bookingID int64) (swish.PaymentStatus, error)
	HandleCallback(ctx context.Context, body []byte, signature string) error
}

// TestBookings manages the ephemeral smoke-test namespace.
type TestBookings interface {
	CreateTestBooking(ctx context.Context, trailerType entity.TrailerType, kind entity.RentalKind, smsTarget string) (*entity.TestBooking, error)
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	DeleteDue(ctx context.Context, now time.Time) (int64, error)
}

// Hooks is the notification seam. Implementations must be fast and
// non-blocking; delivery happens on the queue.
type Hooks interface {
	BookingConfirmed(ctx context.Context, booking *entity.Booking)
	BookingCancelled(ctx context.Context, booking *entity.Booking, reason string)
	TestBookingPaid(ctx context.Context, testBooking *entity.TestBooking)
}

// Services bundles the business layer for the transport and workers.
type Services struct {
	Ledger       SlotLedger
	Machine      BookingStateMachine
	Sweeper      ExpirySweeper
	Payments     PaymentOrchestrator
	TestBookings TestBookings
}

func NewServices(
	cfg *config.Config,
	bookings repository.BookingRepository,
	blocks repository.BlockRepository,
	testBookings repository.TestBookingRepository,
	gateway swish.Gateway,
	hooks Hooks,
) *Services {
	ledger := NewLedgerService(cfg, bookings, blocks)
	machine := NewBookingService(bookings, hooks)
	return &Services{
		Ledger:       ledger,
		Machine:      machine,
		Sweeper:      NewExpirySweeper(bookings, machine),
		Payments:     NewPaymentService(cfg, bookings, gateway, machine),
		TestBookings: NewTestBookingService(cfg, testBookings, ledger, hooks),
	}
}
