package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogProvider writes every event to the structured log. Always enabled,
// so an operator can reconstruct the notification history even when the
// outbound channels are misconfigured.
type LogProvider struct{}

func NewLogProvider() *LogProvider {
	return &LogProvider{}
}

func (p *LogProvider) Name() string {
	return "log"
}

func (p *LogProvider) Notify(_ context.Context, event *Event) error {
	logrus.WithFields(logrus.Fields{
		"kind":              event.Kind,
		"booking_id":        event.BookingID,
		"booking_reference": event.BookingReference,
		"trailer_type":      event.TrailerType,
		"rental_kind":       event.RentalKind,
		"price":             event.Price,
		"reason":            event.Reason,
	}).Info("Booking notification")
	return nil
}
