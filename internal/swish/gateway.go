// Package swish integrates with the Swish payment rails: payment request
// creation, status polling and callback signature verification.
package swish

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dalsjofors/hyrservice/internal/entity"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentRequest is what the customer needs to complete a Swish payment:
// a stable reference to poll on, a QR payload for scanning and a deep
// link for same-device flows.
type PaymentRequest struct {
	PaymentReference string `json:"payment_reference"`
	QRPayload        string `json:"qr_payload"`
	AppLink          string `json:"app_link"`
}

type Gateway interface {
	// CreatePaymentRequest is idempotent per booking: repeated calls for
	// the same booking return the same payment reference.
	CreatePaymentRequest(ctx context.Context, booking *entity.Booking) (*PaymentRequest, error)

	// PollStatus reports the gateway-side state of a payment request.
	PollStatus(ctx context.Context, paymentReference string) (PaymentStatus, error)
}

// PaymentMessage is the payer-visible message attached to a payment
// request. It carries the booking ID so incoming payments can be matched
// back to bookings by hand if everything else fails.
func PaymentMessage(bookingID int64) string {
	return fmt.Sprintf("DHS-%d", bookingID)
}

// QRPayload builds the string encoded into the Swish QR code. Format:
// C{payee};{amount};{message};0 with the message percent-encoded and the
// trailing 0 marking the amount as non-editable.
func QRPayload(merchantAlias string, amount int, message string) string {
	return fmt.Sprintf("C%s;%d;%s;0", merchantAlias, amount, url.QueryEscape(message))
}

// AppLink builds the swish:// deep link that opens the Swish app with the
// payment request preloaded.
func AppLink(token, callbackURL string) string {
	return fmt.Sprintf("swish://paymentrequest?token=%s&callbackurl=%s",
		url.QueryEscape(token), url.QueryEscape(callbackURL))
}
