package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/sirupsen/logrus"
)

// BookingService is the state machine for terminal transitions. The
// guarded repository updates make concurrent confirm/cancel races resolve
// to first writer wins; the notification claim makes each hook fire at
// most once per booking.
type BookingService struct {
	bookings repository.BookingRepository
	hooks    Hooks
	now      func() time.Time
}

func NewBookingService(bookings repository.BookingRepository, hooks Hooks) *BookingService {
	return &BookingService{
		bookings: bookings,
		hooks:    hooks,
		now:      time.Now,
	}
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id int64, paymentReference string) (*entity.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case entity.BookingStatusConfirmed:
		// Repeated confirmation is a no-op; the gateway retries callbacks.
		if paymentReference != "" && booking.PaymentReference != paymentReference {
			logrus.WithFields(logrus.Fields{
				"booking_id": id,
				"have":       booking.PaymentReference,
				"got":        paymentReference,
			}).Warn("Confirmation repeated with a different payment reference")
		}
		return booking, nil
	case entity.BookingStatusCancelled:
		logrus.WithField("booking_id", id).Warn("Rejected confirm of a cancelled booking")
		return nil, fmt.Errorf("%w: booking %d is cancelled", entity.ErrIllegalTransition, id)
	}

	if paymentReference != "" && booking.PaymentReference == "" {
		if err := s.bookings.SetPaymentReference(ctx, id, paymentReference); err != nil {
			return nil, err
		}
		booking.PaymentReference = paymentReference
	}

	transitioned, err := s.bookings.TransitionStatus(ctx, id, entity.BookingStatusPending, entity.BookingStatusConfirmed, true)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		// Lost the race. Re-read to see which terminal state won.
		current, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == entity.BookingStatusConfirmed {
			return current, nil
		}
		return nil, fmt.Errorf("%w: booking %d is %s", entity.ErrIllegalTransition, id, current.Status)
	}

	// Snapshot keeps the contact fields the transition just cleared, so
	// the hook can still reach the customer.
	snapshot := *booking
	snapshot.Status = entity.BookingStatusConfirmed

	if s.hooks != nil {
		won, err := s.bookings.ClaimNotification(ctx, id, entity.ChannelConfirmed, s.now())
		if err != nil {
			logrus.Errorf("Failed to claim confirmation notification for booking %d: %v", id, err)
		} else if won {
			s.hooks.BookingConfirmed(ctx, &snapshot)
		}
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":        id,
		"booking_reference": booking.BookingReference,
	}).Info("Booking confirmed")
	return &snapshot, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id int64, reason string) (*entity.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case entity.BookingStatusCancelled:
		return booking, nil
	case entity.BookingStatusConfirmed:
		logrus.WithField("booking_id", id).Warn("Rejected cancel of a confirmed booking")
		return nil, fmt.Errorf("%w: booking %d is confirmed", entity.ErrIllegalTransition, id)
	}

	transitioned, err := s.bookings.TransitionStatus(ctx, id, entity.BookingStatusPending, entity.BookingStatusCancelled, true)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		current, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == entity.BookingStatusCancelled {
			return current, nil
		}
		return nil, fmt.Errorf("%w: booking %d is %s", entity.ErrIllegalTransition, id, current.Status)
	}

	snapshot := *booking
	snapshot.Status = entity.BookingStatusCancelled

	if s.hooks != nil {
		won, err := s.bookings.ClaimNotification(ctx, id, entity.ChannelCancelled, s.now())
		if err != nil {
			logrus.Errorf("Failed to claim cancellation notification for booking %d: %v", id, err)
		} else if won {
			s.hooks.BookingCancelled(ctx, &snapshot, reason)
		}
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":        id,
		"booking_reference": booking.BookingReference,
		"reason":            reason,
	}).Info("Booking cancelled")
	return &snapshot, nil
}
