package swish

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// HTTPClient talks to the real Swish commerce API over mutual TLS.
type HTTPClient struct {
	cfg    *config.SwishConfig
	client *http.Client
}

func NewHTTPClient(cfg *config.SwishConfig) (*HTTPClient, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load swish client certificate: %w", err)
	}

	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{cert},
					MinVersion:   tls.VersionTLS12,
				},
			},
		},
	}, nil
}

type createRequestBody struct {
	PayeeAlias            string `json:"payeeAlias"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Message               string `json:"message"`
	CallbackURL           string `json:"callbackUrl"`
	PayeePaymentReference string `json:"payeePaymentReference"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (c *HTTPClient) CreatePaymentRequest(ctx context.Context, booking *entity.Booking) (*PaymentRequest, error) {
	// The instruction UUID doubles as our payment reference, so the same
	// booking always maps to the same gateway-side request.
	instructionID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("booking-%d", booking.ID))).String()
	message := PaymentMessage(booking.ID)

	body, err := json.Marshal(createRequestBody{
		PayeeAlias:            c.cfg.MerchantAlias,
		Amount:                fmt.Sprintf("%d", booking.Price),
		Currency:              "SEK",
		Message:               message,
		CallbackURL:           c.cfg.CallbackURL,
		PayeePaymentReference: fmt.Sprintf("%d", booking.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	endpoint := c.cfg.APIURL + path.Join("/api/v2/paymentrequests", instructionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	// 201 on first creation, 409 when the instruction ID already exists.
	// Both mean the request is in place.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		logrus.WithField("status", resp.StatusCode).Error("Swish payment request rejected")
		return nil, fmt.Errorf("%w: unexpected status %d", entity.ErrGatewayUnavailable, resp.StatusCode)
	}

	return &PaymentRequest{
		PaymentReference: instructionID,
		QRPayload:        QRPayload(c.cfg.MerchantAlias, booking.Price, message),
		AppLink:          AppLink(resp.Header.Get("PaymentRequestToken"), c.cfg.CallbackURL),
	}, nil
}

func (c *HTTPClient) PollStatus(ctx context.Context, paymentReference string) (PaymentStatus, error) {
	endpoint := c.cfg.APIURL + path.Join("/api/v2/paymentrequests", paymentReference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", entity.ErrGatewayUnavailable, resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}

	switch status.Status {
	case "PAID":
		return PaymentStatusPaid, nil
	case "DECLINED", "ERROR", "CANCELLED":
		return PaymentStatusFailed, nil
	default:
		return PaymentStatusPending, nil
	}
}
