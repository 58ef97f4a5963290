package swish

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MockClient simulates the Swish gateway in-process. Payment requests are
// held in memory and stay PENDING until a callback or a test helper moves
// them. Used in development and in the test suite.
type MockClient struct {
	cfg *config.SwishConfig

	mu        sync.Mutex
	byBooking map[int64]*PaymentRequest
	statuses  map[string]PaymentStatus
}

func NewMockClient(cfg *config.SwishConfig) *MockClient {
	return &MockClient{
		cfg:       cfg,
		byBooking: make(map[int64]*PaymentRequest),
		statuses:  make(map[string]PaymentStatus),
	}
}

func (m *MockClient) CreatePaymentRequest(_ context.Context, booking *entity.Booking) (*PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byBooking[booking.ID]; ok {
		return existing, nil
	}

	reference := uuid.New().String()
	message := PaymentMessage(booking.ID)
	request := &PaymentRequest{
		PaymentReference: reference,
		QRPayload:        QRPayload(m.cfg.MerchantAlias, booking.Price, message),
		AppLink:          AppLink(reference, m.cfg.CallbackURL),
	}

	m.byBooking[booking.ID] = request
	m.statuses[reference] = PaymentStatusPending

	logrus.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_reference": reference,
	}).Info("Mock payment request created")
	return request, nil
}

func (m *MockClient) PollStatus(_ context.Context, paymentReference string) (PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[paymentReference]
	if !ok {
		return "", fmt.Errorf("unknown payment reference %s", paymentReference)
	}
	return status, nil
}

// SetStatus flips a mock payment's state, standing in for the real
// gateway resolving the payment.
func (m *MockClient) SetStatus(paymentReference string, status PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[paymentReference] = status
}
