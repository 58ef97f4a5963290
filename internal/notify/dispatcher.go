package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/dalsjofors/hyrservice/pkg/queue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher publishes notification tasks for booking transitions. It is
// called after the transition is durably claimed, so a publish failure is
// logged and dropped rather than blocking the booking.
type Dispatcher struct {
	queue queue.Queue
}

func NewDispatcher(q queue.Queue) *Dispatcher {
	return &Dispatcher{queue: q}
}

func (d *Dispatcher) BookingConfirmed(ctx context.Context, booking *entity.Booking) {
	d.publish(ctx, queue.TaskTypeNotifyConfirmed, booking, "")
}

func (d *Dispatcher) BookingCancelled(ctx context.Context, booking *entity.Booking, reason string) {
	d.publish(ctx, queue.TaskTypeNotifyCancelled, booking, reason)
}

func (d *Dispatcher) TestBookingPaid(ctx context.Context, testBooking *entity.TestBooking) {
	task := &queue.Task{
		ID:   uuid.New().String(),
		Type: queue.TaskTypeNotifyTestPaid,
		Data: map[string]interface{}{
			"booking_id":   testBooking.ID,
			"trailer_type": string(testBooking.TrailerType),
			"rental_kind":  string(testBooking.RentalKind),
			"price":        testBooking.Price,
			"phone":        testBooking.SMSTarget,
		},
		CreatedAt: time.Now(),
	}
	if err := d.queue.Publish(ctx, task); err != nil {
		logrus.Errorf("Failed to publish test booking notification: %v", err)
	}
}

func (d *Dispatcher) publish(ctx context.Context, taskType queue.TaskType, booking *entity.Booking, reason string) {
	task := &queue.Task{
		ID:   uuid.New().String(),
		Type: taskType,
		Data: map[string]interface{}{
			"booking_id":        booking.ID,
			"booking_reference": booking.BookingReference,
			"trailer_type":      string(booking.TrailerType),
			"rental_kind":       string(booking.RentalKind),
			"start_at":          booking.StartAt.Format(time.RFC3339),
			"end_at":            booking.EndAt.Format(time.RFC3339),
			"price":             booking.Price,
			"phone":             booking.CustomerPhone,
			"reason":            reason,
		},
		CreatedAt: time.Now(),
	}
	if err := d.queue.Publish(ctx, task); err != nil {
		logrus.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"type":       taskType,
		}).Errorf("Failed to publish notification: %v", err)
	}
}

// EventFromTask rebuilds the provider-facing event from a queued task.
func EventFromTask(task *queue.Task) (*Event, error) {
	var kind EventKind
	switch task.Type {
	case queue.TaskTypeNotifyConfirmed:
		kind = EventBookingConfirmed
	case queue.TaskTypeNotifyCancelled:
		kind = EventBookingCancelled
	case queue.TaskTypeNotifyTestPaid:
		kind = EventTestBookingPaid
	default:
		return nil, fmt.Errorf("unknown notification task type %q", task.Type)
	}

	return &Event{
		Kind:             kind,
		BookingID:        int64(task.GetInt("booking_id")),
		BookingReference: task.GetString("booking_reference"),
		TrailerType:      task.GetString("trailer_type"),
		RentalKind:       task.GetString("rental_kind"),
		StartAt:          task.GetString("start_at"),
		EndAt:            task.GetString("end_at"),
		Price:            task.GetInt("price"),
		Phone:            task.GetString("phone"),
		Reason:           task.GetString("reason"),
	}, nil
}
