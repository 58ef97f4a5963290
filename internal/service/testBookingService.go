package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/sirupsen/logrus"
)

// TestBookingService manages the ephemeral smoke-test namespace. Test
// bookings never touch the slot ledger; they auto-promote to PAID and
// are deleted on their own schedule, driven by the worker ticker.
type TestBookingService struct {
	cfg          *config.WorkerConfig
	testBookings repository.TestBookingRepository
	ledger       SlotLedger
	hooks        Hooks
	now          func() time.Time
}

func NewTestBookingService(cfg *config.Config, testBookings repository.TestBookingRepository, ledger SlotLedger, hooks Hooks) *TestBookingService {
	return &TestBookingService{
		cfg:          &cfg.Worker,
		testBookings: testBookings,
		ledger:       ledger,
		hooks:        hooks,
		now:          time.Now,
	}
}

func (s *TestBookingService) CreateTestBooking(ctx context.Context, trailerType entity.TrailerType, kind entity.RentalKind, smsTarget string) (*entity.TestBooking, error) {
	if !trailerType.Valid() {
		return nil, fmt.Errorf("%w: unknown trailer type %q", entity.ErrInvalidInput, trailerType)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown rental kind %q", entity.ErrInvalidInput, kind)
	}

	now := s.now()
	price, err := s.ledger.Price(kind, now)
	if err != nil {
		return nil, err
	}

	testBooking := &entity.TestBooking{
		TrailerType:  trailerType,
		RentalKind:   kind,
		Price:        price,
		Status:       entity.TestBookingStatusPending,
		SMSTarget:    smsTarget,
		PromoteDueAt: now.Add(s.cfg.PromoteDelay),
		DeleteDueAt:  now.Add(s.cfg.PromoteDelay + s.cfg.DeleteDelay),
		CreatedAt:    now,
	}
	if err := s.testBookings.Create(ctx, testBooking); err != nil {
		return nil, err
	}

	logrus.WithField("test_booking_id", testBooking.ID).Info("Test booking created")
	return testBooking, nil
}

// PromoteDue flips due PENDING test bookings to PAID. MarkPaid is a
// guarded update, so overlapping sweeps promote (and notify) each row at
// most once.
func (s *TestBookingService) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.testBookings.DuePromotions(ctx, now)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, testBooking := range due {
		won, err := s.testBookings.MarkPaid(ctx, testBooking.ID)
		if err != nil {
			logrus.Errorf("Failed to promote test booking %d: %v", testBooking.ID, err)
			continue
		}
		if !won {
			continue
		}
		promoted++
		testBooking.Status = entity.TestBookingStatusPaid
		if s.hooks != nil {
			s.hooks.TestBookingPaid(ctx, testBooking)
		}
	}
	return promoted, nil
}

func (s *TestBookingService) DeleteDue(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.testBookings.DeleteDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logrus.WithField("count", deleted).Info("Test bookings deleted")
	}
	return deleted, nil
}
