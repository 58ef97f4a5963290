package worker

import (
	"context"
	"time"

	"github.com/dalsjofors/hyrservice/internal/service"

	"github.com/sirupsen/logrus"
)

// TestBookingWorker drives the ephemeral smoke-test namespace on a real
// ticker: due PENDING test bookings are promoted to PAID, and stale rows
// are deleted. Real bookings are never touched here; their expiry is the
// inline sweep.
type TestBookingWorker struct {
	testBookings service.TestBookings
	interval     time.Duration
}

func NewTestBookingWorker(testBookings service.TestBookings, interval time.Duration) *TestBookingWorker {
	return &TestBookingWorker{
		testBookings: testBookings,
		interval:     interval,
	}
}

func (w *TestBookingWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Test booking worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Test booking worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *TestBookingWorker) tick(ctx context.Context) {
	now := time.Now()

	promoted, err := w.testBookings.PromoteDue(ctx, now)
	if err != nil {
		logrus.Errorf("Failed to promote due test bookings: %v", err)
	} else if promoted > 0 {
		logrus.Infof("Promoted %d test bookings to PAID", promoted)
	}

	deleted, err := w.testBookings.DeleteDue(ctx, now)
	if err != nil {
		logrus.Errorf("Failed to delete due test bookings: %v", err)
	} else if deleted > 0 {
		logrus.Infof("Deleted %d stale test bookings", deleted)
	}
}
