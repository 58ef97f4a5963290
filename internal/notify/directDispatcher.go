package notify

import (
	"context"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/sirupsen/logrus"
)

// DirectDispatcher fans events out to providers without a queue, used
// when Redis is disabled. Delivery runs on a goroutine so booking
// transitions never wait on a provider; failed deliveries are logged and
// lost (no retry without the queue).
type DirectDispatcher struct {
	providers []Provider
}

func NewDirectDispatcher(providers ...Provider) *DirectDispatcher {
	return &DirectDispatcher{providers: providers}
}

func (d *DirectDispatcher) BookingConfirmed(_ context.Context, booking *entity.Booking) {
	d.deliver(d.bookingEvent(EventBookingConfirmed, booking, ""))
}

func (d *DirectDispatcher) BookingCancelled(_ context.Context, booking *entity.Booking, reason string) {
	d.deliver(d.bookingEvent(EventBookingCancelled, booking, reason))
}

func (d *DirectDispatcher) TestBookingPaid(_ context.Context, testBooking *entity.TestBooking) {
	d.deliver(&Event{
		Kind:        EventTestBookingPaid,
		BookingID:   testBooking.ID,
		TrailerType: string(testBooking.TrailerType),
		RentalKind:  string(testBooking.RentalKind),
		Price:       testBooking.Price,
		Phone:       testBooking.SMSTarget,
	})
}

func (d *DirectDispatcher) bookingEvent(kind EventKind, booking *entity.Booking, reason string) *Event {
	return &Event{
		Kind:             kind,
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		TrailerType:      string(booking.TrailerType),
		RentalKind:       string(booking.RentalKind),
		StartAt:          booking.StartAt.Format(time.RFC3339),
		EndAt:            booking.EndAt.Format(time.RFC3339),
		Price:            booking.Price,
		Phone:            booking.CustomerPhone,
		Reason:           reason,
	}
}

func (d *DirectDispatcher) deliver(event *Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, provider := range d.providers {
			if err := provider.Notify(ctx, event); err != nil {
				logrus.WithFields(logrus.Fields{
					"provider":   provider.Name(),
					"booking_id": event.BookingID,
				}).Errorf("Notification delivery failed: %v", err)
			}
		}
	}()
}
