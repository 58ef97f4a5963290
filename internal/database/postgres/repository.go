package repository

import (
	"context"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
)

type BookingRepository interface {
	// Reserve atomically re-checks the slot (block overlap first, then
	// capacity) and inserts the PENDING row with its booking reference.
	// The check and the insert run in one transaction.
	Reserve(ctx context.Context, booking *entity.Booking, now time.Time) error

	GetByID(ctx context.Context, id int64) (*entity.Booking, error)
	GetByReference(ctx context.Context, reference string) (*entity.Booking, error)
	GetByPaymentReference(ctx context.Context, reference string) (*entity.Booking, error)

	// CountOverlappingActive counts bookings that occupy capacity for the
	// window: CONFIRMED, or PENDING with an unexpired hold.
	CountOverlappingActive(ctx context.Context, trailerType entity.TrailerType, window entity.Window, now time.Time) (int, error)

	// TransitionStatus applies a guarded status update and reports whether
	// the row was actually transitioned. clearContact also wipes the
	// transient customer contact fields in the same statement.
	TransitionStatus(ctx context.Context, id int64, from, to entity.BookingStatus, clearContact bool) (bool, error)

	SetPaymentReference(ctx context.Context, id int64, reference string) error

	// ClaimNotification sets the channel's sent-at marker if it is still
	// unset and reports whether this caller won the claim.
	ClaimNotification(ctx context.Context, id int64, channel entity.NotificationChannel, at time.Time) (bool, error)

	GetExpired(ctx context.Context, before time.Time) ([]*entity.Booking, error)
	GetAll(ctx context.Context) ([]*entity.Booking, error)
	GetByStatus(ctx context.Context, status entity.BookingStatus) ([]*entity.Booking, error)
}

type BlockRepository interface {
	Create(ctx context.Context, block *entity.AdminBlock) error
	FindOverlap(ctx context.Context, trailerType entity.TrailerType, window entity.Window) (*entity.AdminBlock, error)
	List(ctx context.Context, window *entity.Window) ([]*entity.AdminBlock, error)
	Delete(ctx context.Context, id int64) error
}

type TestBookingRepository interface {
	Create(ctx context.Context, testBooking *entity.TestBooking) error
	GetByID(ctx context.Context, id int64) (*entity.TestBooking, error)
	DuePromotions(ctx context.Context, now time.Time) ([]*entity.TestBooking, error)
	MarkPaid(ctx context.Context, id int64) (bool, error)
	DeleteDue(ctx context.Context, now time.Time) (int64, error)
}
