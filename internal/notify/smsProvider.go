package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/sirupsen/logrus"
)

const (
	twilioBaseURL = "https://api.twilio.com/2010-04-01"
	smsTimeout    = 10 * time.Second
)

// SMSProvider sends booking texts through the Twilio REST API. The
// customer gets a confirmation or cancellation text on their normalized
// number; the admin number gets a copy of every event.
type SMSProvider struct {
	cfg    *config.NotifyConfig
	client *http.Client

	// baseURL is overridable in tests.
	baseURL string
}

func NewSMSProvider(cfg *config.NotifyConfig) *SMSProvider {
	return &SMSProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: smsTimeout},
		baseURL: twilioBaseURL,
	}
}

func (p *SMSProvider) Name() string {
	return "sms"
}

func (p *SMSProvider) Notify(ctx context.Context, event *Event) error {
	message := p.messageFor(event)
	if message == "" {
		return nil
	}

	targets := make([]string, 0, 2)
	if event.Phone != "" {
		if normalized, ok := NormalizeSwedishMobile(event.Phone); ok {
			targets = append(targets, normalized)
		} else {
			logrus.WithField("booking_id", event.BookingID).
				Warn("Skipping SMS, customer phone is not a Swedish mobile number")
		}
	}
	if p.cfg.AdminSMSNumber != "" {
		targets = append(targets, p.cfg.AdminSMSNumber)
	}

	for _, target := range targets {
		if err := p.send(ctx, target, message); err != nil {
			return err
		}
	}
	return nil
}

func (p *SMSProvider) messageFor(event *Event) string {
	switch event.Kind {
	case EventBookingConfirmed:
		return fmt.Sprintf("Din bokning %s är bekräftad. Släp: %s, pris: %d kr. Välkommen till Dalsjöfors Hyrservice!",
			event.BookingReference, event.TrailerType, event.Price)
	case EventBookingCancelled:
		return fmt.Sprintf("Din bokning %s har avbokats (%s).",
			event.BookingReference, event.Reason)
	case EventTestBookingPaid:
		return fmt.Sprintf("Testbokning %d markerad som betald (%d kr).", event.BookingID, event.Price)
	default:
		return ""
	}
}

func (p *SMSProvider) send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", p.baseURL, p.cfg.TwilioAccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.cfg.TwilioFromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.cfg.TwilioAccountSID, p.cfg.TwilioAuthToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}

	logrus.WithField("to", to).Info("SMS sent")
	return nil
}
