package service

import (
	"context"
	"errors"
	"time"

	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/sirupsen/logrus"
)

// expirySweeper cancels expired holds through the state machine, so
// contact clearing and at-most-once notification apply to swept bookings
// exactly as to manual cancellations. It only ever runs inline, at the
// start of a request touching the ledger.
type expirySweeper struct {
	bookings repository.BookingRepository
	machine  BookingStateMachine
}

func NewExpirySweeper(bookings repository.BookingRepository, machine BookingStateMachine) ExpirySweeper {
	return &expirySweeper{bookings: bookings, machine: machine}
}

func (s *expirySweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.bookings.GetExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, booking := range expired {
		if _, err := s.machine.CancelBooking(ctx, booking.ID, "expired"); err != nil {
			// A concurrent confirm can legitimately beat the sweep.
			if errors.Is(err, entity.ErrIllegalTransition) {
				continue
			}
			logrus.Errorf("Failed to expire booking %d: %v", booking.ID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		logrus.WithField("count", swept).Info("Expired holds reclaimed")
	}
	return swept, nil
}
