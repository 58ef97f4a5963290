package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/dalsjofors/hyrservice/internal/swish"
	"github.com/sirupsen/logrus"
)

// PaymentService drives bookings through the Swish flow: request
// creation, status polling and callback handling. Gateway calls happen
// outside any ledger lock; a gateway failure leaves the booking PENDING
// and the expiry sweep is the backstop.
type PaymentService struct {
	cfg      *config.SwishConfig
	bookings repository.BookingRepository
	gateway  swish.Gateway
	machine  BookingStateMachine
	now      func() time.Time
}

func NewPaymentService(cfg *config.Config, bookings repository.BookingRepository, gateway swish.Gateway, machine BookingStateMachine) *PaymentService {
	return &PaymentService{
		cfg:      &cfg.Swish,
		bookings: bookings,
		gateway:  gateway,
		machine:  machine,
		now:      time.Now,
	}
}

// CreatePaymentRequest is idempotent per booking: if a payment reference
// already exists the existing request is reused and Idempotent is set.
func (s *PaymentService) CreatePaymentRequest(ctx context.Context, bookingID int64) (*PaymentResult, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == entity.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: booking %d is cancelled", entity.ErrIllegalTransition, bookingID)
	}

	hadReference := booking.PaymentReference != ""

	request, err := s.gateway.CreatePaymentRequest(ctx, booking)
	if err != nil {
		return nil, err
	}

	if !hadReference {
		if err := s.bookings.SetPaymentReference(ctx, bookingID, request.PaymentReference); err != nil {
			return nil, err
		}
	}

	return &PaymentResult{
		PaymentReference: request.PaymentReference,
		QRPayload:        request.QRPayload,
		AppLink:          request.AppLink,
		Idempotent:       hadReference,
	}, nil
}

// PaymentStatus reports the payment state in the gateway vocabulary,
// polling the gateway first when the booking is still PENDING with an
// outstanding payment request. A poll that comes back PAID confirms the
// booking on the spot.
func (s *PaymentService) PaymentStatus(ctx context.Context, bookingID int64) (swish.PaymentStatus, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if booking.Terminal() || booking.PaymentReference == "" {
		return paymentStatusFor(booking.Status), nil
	}

	status, err := s.gateway.PollStatus(ctx, booking.PaymentReference)
	if err != nil {
		// Polling is best effort; the booking stays PENDING.
		logrus.Errorf("Payment status poll failed for booking %d: %v", bookingID, err)
		return swish.PaymentStatusPending, nil
	}

	if status == swish.PaymentStatusPaid {
		if _, err := s.machine.ConfirmBooking(ctx, bookingID, booking.PaymentReference); err != nil {
			return "", err
		}
		return swish.PaymentStatusPaid, nil
	}
	// Declines only commit through the signed callback; an unpaid poll
	// leaves the booking PENDING.
	return paymentStatusFor(booking.Status), nil
}

// paymentStatusFor maps a booking status onto the payment vocabulary:
// CONFIRMED means the payment went through, CANCELLED means it never
// will.
func paymentStatusFor(status entity.BookingStatus) swish.PaymentStatus {
	switch status {
	case entity.BookingStatusConfirmed:
		return swish.PaymentStatusPaid
	case entity.BookingStatusCancelled:
		return swish.PaymentStatusFailed
	default:
		return swish.PaymentStatusPending
	}
}

// swishCallback is the payload the gateway POSTs when a payment resolves.
type swishCallback struct {
	PaymentReference string `json:"paymentReference"`
	Status           string `json:"status"`
}

// HandleCallback verifies the callback signature, matches the payment to
// its booking and applies the outcome: PAID confirms, every other
// terminal gateway status cancels.
func (s *PaymentService) HandleCallback(ctx context.Context, body []byte, signature string) error {
	if err := swish.VerifySignature(s.cfg.Secret, body, signature); err != nil {
		return err
	}

	var callback swishCallback
	if err := json.Unmarshal(body, &callback); err != nil {
		return fmt.Errorf("%w: malformed callback body", entity.ErrInvalidInput)
	}
	if callback.PaymentReference == "" {
		return fmt.Errorf("%w: callback missing payment reference", entity.ErrInvalidInput)
	}

	booking, err := s.bookings.GetByPaymentReference(ctx, callback.PaymentReference)
	if err != nil {
		return err
	}

	switch callback.Status {
	case "PAID":
		_, err = s.machine.ConfirmBooking(ctx, booking.ID, callback.PaymentReference)
	case "DECLINED", "ERROR", "CANCELLED", "FAILED":
		_, err = s.machine.CancelBooking(ctx, booking.ID, "payment failed")
	default:
		return fmt.Errorf("%w: unknown callback status %q", entity.ErrInvalidInput, callback.Status)
	}
	return err
}
