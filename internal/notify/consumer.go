package notify

import (
	"context"

	"github.com/dalsjofors/hyrservice/pkg/queue"
	"github.com/sirupsen/logrus"
)

// Consumer drains the notification queue and fans each event out to all
// providers. A provider error fails the task so the queue retries it;
// providers that already delivered must treat the redelivery as a no-op
// or accept the duplicate.
type Consumer struct {
	queue     queue.Queue
	providers []Provider
}

func NewConsumer(q queue.Queue, providers ...Provider) *Consumer {
	return &Consumer{queue: q, providers: providers}
}

func (c *Consumer) Run(ctx context.Context) error {
	return c.queue.Subscribe(ctx, c.handle)
}

func (c *Consumer) handle(task *queue.Task) error {
	event, err := EventFromTask(task)
	if err != nil {
		// Unmappable tasks are dropped, retrying cannot fix them.
		logrus.Errorf("Dropping notification task %s: %v", task.ID, err)
		return nil
	}

	var lastErr error
	for _, provider := range c.providers {
		if err := provider.Notify(context.Background(), event); err != nil {
			logrus.WithFields(logrus.Fields{
				"provider":   provider.Name(),
				"booking_id": event.BookingID,
				"kind":       event.Kind,
			}).Errorf("Notification delivery failed: %v", err)
			lastErr = err
		}
	}
	return lastErr
}
