package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/dalsjofors/hyrservice/internal/swish"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLedger struct {
	availability *service.AvailabilityResult
	reserved     *entity.Booking
	reserveErr   error

	lastReserve service.ReserveRequest
	lastBlock   *entity.AdminBlock
	blocks      []*entity.AdminBlock
}

func (s *stubLedger) Availability(_ context.Context, _ service.AvailabilityRequest) (*service.AvailabilityResult, error) {
	return s.availability, nil
}

func (s *stubLedger) Price(kind entity.RentalKind, date time.Time) (int, error) {
	if kind == entity.RentalKindShort {
		return 200, nil
	}
	if config.IsWeekendOrHoliday(date) {
		return 300, nil
	}
	return 250, nil
}

func (s *stubLedger) Reserve(_ context.Context, req service.ReserveRequest) (*entity.Booking, error) {
	s.lastReserve = req
	return s.reserved, s.reserveErr
}

func (s *stubLedger) GetBooking(_ context.Context, id int64) (*entity.Booking, error) {
	if s.reserved == nil || s.reserved.ID != id {
		return nil, entity.ErrBookingNotFound
	}
	return s.reserved, nil
}

func (s *stubLedger) GetBookingByReference(_ context.Context, reference string) (*entity.Booking, error) {
	if s.reserved == nil || s.reserved.BookingReference != reference {
		return nil, entity.ErrBookingNotFound
	}
	return s.reserved, nil
}

func (s *stubLedger) ListBookings(_ context.Context, _ entity.BookingStatus) ([]*entity.Booking, error) {
	if s.reserved == nil {
		return nil, nil
	}
	return []*entity.Booking{s.reserved}, nil
}

func (s *stubLedger) CreateBlock(_ context.Context, block *entity.AdminBlock) error {
	block.ID = 1
	s.lastBlock = block
	return nil
}

func (s *stubLedger) ListBlocks(_ context.Context, _ *entity.Window) ([]*entity.AdminBlock, error) {
	return s.blocks, nil
}

func (s *stubLedger) DeleteBlock(_ context.Context, id int64) error {
	if id == 404 {
		return entity.ErrBlockNotFound
	}
	return nil
}

type stubMachine struct {
	cancelErr  error
	lastReason string
}

func (s *stubMachine) ConfirmBooking(_ context.Context, id int64, _ string) (*entity.Booking, error) {
	return &entity.Booking{ID: id, Status: entity.BookingStatusConfirmed}, nil
}

func (s *stubMachine) CancelBooking(_ context.Context, id int64, reason string) (*entity.Booking, error) {
	s.lastReason = reason
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &entity.Booking{ID: id, Status: entity.BookingStatusCancelled}, nil
}

type stubSweeper struct {
	calls atomic.Int64
}

func (s *stubSweeper) SweepOnce(_ context.Context, _ time.Time) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

type stubPayments struct {
	result      *service.PaymentResult
	resultErr   error
	status      swish.PaymentStatus
	callbackErr error
}

func (s *stubPayments) CreatePaymentRequest(_ context.Context, _ int64) (*service.PaymentResult, error) {
	return s.result, s.resultErr
}

func (s *stubPayments) PaymentStatus(_ context.Context, _ int64) (swish.PaymentStatus, error) {
	return s.status, nil
}

func (s *stubPayments) HandleCallback(_ context.Context, _ []byte, _ string) error {
	return s.callbackErr
}

type stubTestBookings struct {
	created *entity.TestBooking
}

func (s *stubTestBookings) CreateTestBooking(_ context.Context, tt entity.TrailerType, kind entity.RentalKind, target string) (*entity.TestBooking, error) {
	if !tt.Valid() || !kind.Valid() {
		return nil, entity.ErrInvalidInput
	}
	s.created = &entity.TestBooking{ID: 1, TrailerType: tt, RentalKind: kind, SMSTarget: target}
	return s.created, nil
}

func (s *stubTestBookings) PromoteDue(_ context.Context, _ time.Time) (int, error)  { return 0, nil }
func (s *stubTestBookings) DeleteDue(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type testEnv struct {
	router  *gin.Engine
	ledger  *stubLedger
	machine *stubMachine
	sweeper *stubSweeper
	pay     *stubPayments
	tests   *stubTestBookings
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ledger:  &stubLedger{availability: &service.AvailabilityResult{Available: true, Remaining: 2}},
		machine: &stubMachine{},
		sweeper: &stubSweeper{},
		pay:     &stubPayments{status: swish.PaymentStatusPending},
		tests:   &stubTestBookings{},
	}
	cfg := &config.Config{
		Server: config.ServerConfig{Timeout: 5 * time.Second},
		Admin:  config.AdminConfig{Token: "admin-token"},
	}
	env.router = InitRoutes(cfg, &service.Services{
		Ledger:       env.ledger,
		Machine:      env.machine,
		Sweeper:      env.sweeper,
		Payments:     env.pay,
		TestBookings: env.tests,
	})
	return env
}

func doRequest(router *gin.Engine, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestGetPrice(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name     string
		target   string
		price    float64
		dayType  string
		httpCode int
	}{
		{"weekday full day", "/api/price?rentalType=FULL_DAY&date=2026-01-14", 250, "weekday", http.StatusOK},
		{"saturday full day", "/api/price?rentalType=FULL_DAY&date=2026-01-17", 300, "weekend", http.StatusOK},
		{"holiday full day", "/api/price?rentalType=FULL_DAY&date=2026-05-14", 300, "holiday", http.StatusOK},
		{"short flat", "/api/price?rentalType=SHORT&date=2026-01-17", 200, "weekend", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doRequest(env.router, http.MethodGet, tt.target, nil, nil)
			require.Equal(t, tt.httpCode, recorder.Code)
			body := decodeBody(t, recorder)
			assert.Equal(t, tt.price, body["price"])
			assert.Equal(t, tt.dayType, body["dayType"])
		})
	}

	t.Run("invalid rental type", func(t *testing.T) {
		recorder := doRequest(env.router, http.MethodGet, "/api/price?rentalType=WEEKLY&date=2026-01-14", nil, nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.NotEmpty(t, body["error"])
		errorInfo := body["errorInfo"].(map[string]interface{})
		assert.Equal(t, "INVALID_INPUT", errorInfo["code"])
	})

	t.Run("price does not sweep", func(t *testing.T) {
		before := env.sweeper.calls.Load()
		doRequest(env.router, http.MethodGet, "/api/price?rentalType=SHORT&date=2026-01-14", nil, nil)
		assert.Equal(t, before, env.sweeper.calls.Load())
	})
}

func TestGetAvailabilitySweepsFirst(t *testing.T) {
	env := newTestEnv()
	recorder := doRequest(env.router, http.MethodGet,
		"/api/availability?trailerType=OPEN_RACK&rentalType=FULL_DAY&date=2026-01-20", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["available"])
	assert.Equal(t, float64(2), body["remaining"])
	assert.Equal(t, int64(1), env.sweeper.calls.Load())
}

func TestCreateHold(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		env := newTestEnv()
		env.ledger.reserved = &entity.Booking{
			ID:               5,
			BookingReference: "DHS-20260112-000005",
			Price:            250,
			Status:           entity.BookingStatusPending,
			CreatedAt:        time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC),
		}

		recorder := doRequest(env.router, http.MethodPost, "/api/hold",
			[]byte(`{"trailerType":"OPEN_RACK","rentalType":"FULL_DAY","date":"2026-01-20","customerPhone":"0701234567"}`), nil)
		require.Equal(t, http.StatusCreated, recorder.Code)

		body := decodeBody(t, recorder)
		assert.Equal(t, float64(5), body["bookingId"])
		assert.Equal(t, "DHS-20260112-000005", body["bookingReference"])
		assert.Equal(t, float64(250), body["price"])
		assert.Equal(t, "0701234567", env.ledger.lastReserve.CustomerPhone)
	})

	t.Run("slot taken", func(t *testing.T) {
		env := newTestEnv()
		env.ledger.reserveErr = entity.ErrSlotTaken

		recorder := doRequest(env.router, http.MethodPost, "/api/hold",
			[]byte(`{"trailerType":"OPEN_RACK","rentalType":"FULL_DAY","date":"2026-01-20"}`), nil)
		require.Equal(t, http.StatusConflict, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "slot taken", body["error"])
	})

	t.Run("slot blocked carries the block", func(t *testing.T) {
		env := newTestEnv()
		env.ledger.reserveErr = &entity.SlotBlockedError{Block: &entity.AdminBlock{ID: 2, Reason: "service"}}

		recorder := doRequest(env.router, http.MethodPost, "/api/hold",
			[]byte(`{"trailerType":"OPEN_RACK","rentalType":"FULL_DAY","date":"2026-01-20"}`), nil)
		require.Equal(t, http.StatusConflict, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "slot blocked", body["error"])
		errorInfo := body["errorInfo"].(map[string]interface{})
		details := errorInfo["details"].(map[string]interface{})
		block := details["block"].(map[string]interface{})
		assert.Equal(t, "service", block["reason"])
	})

	t.Run("short requires start time", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/hold",
			[]byte(`{"trailerType":"OPEN_RACK","rentalType":"SHORT","date":"2026-01-20"}`), nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestPaymentEndpoints(t *testing.T) {
	t.Run("payment request", func(t *testing.T) {
		env := newTestEnv()
		env.pay.result = &service.PaymentResult{
			PaymentReference: "ref-1",
			QRPayload:        "C1234945580;250;DHS-5;0",
			AppLink:          "swish://paymentrequest?token=ref-1",
			Idempotent:       true,
		}

		recorder := doRequest(env.router, http.MethodGet, "/api/payment?bookingId=5", nil, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "ref-1", body["paymentReference"])
		assert.Equal(t, true, body["idempotent"])
	})

	t.Run("missing booking id", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodGet, "/api/payment", nil, nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("status speaks the payment vocabulary", func(t *testing.T) {
		env := newTestEnv()
		env.pay.status = swish.PaymentStatusPaid
		recorder := doRequest(env.router, http.MethodGet, "/api/payment/status?bookingId=5", nil, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "PAID", decodeBody(t, recorder)["status"])
	})

	t.Run("callback ok", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/swish/callback",
			[]byte(`{"paymentReference":"ref-1","status":"PAID"}`), nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, true, decodeBody(t, recorder)["ok"])
	})

	t.Run("callback bad signature", func(t *testing.T) {
		env := newTestEnv()
		env.pay.callbackErr = entity.ErrInvalidSignature
		recorder := doRequest(env.router, http.MethodPost, "/api/swish/callback",
			[]byte(`{}`), map[string]string{"X-Swish-Signature": "sha256=bad"})
		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		body := decodeBody(t, recorder)
		errorInfo := body["errorInfo"].(map[string]interface{})
		assert.Equal(t, "INVALID_SIGNATURE", errorInfo["code"])
	})
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv()

	t.Run("missing token", func(t *testing.T) {
		recorder := doRequest(env.router, http.MethodGet, "/api/admin/bookings", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		recorder := doRequest(env.router, http.MethodGet, "/api/admin/bookings", nil,
			map[string]string{"X-Admin-Token": "nope"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		recorder := doRequest(env.router, http.MethodGet, "/api/admin/bookings", nil,
			map[string]string{"X-Admin-Token": "admin-token"})
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestAdminBlocks(t *testing.T) {
	auth := map[string]string{"X-Admin-Token": "admin-token"}

	t.Run("create with canonical fields", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/admin/blocks",
			[]byte(`{"trailerType":"COVERED","reason":"service","startDatetime":"2026-02-01T08:00","endDatetime":"2026-02-03T18:00"}`), auth)
		require.Equal(t, http.StatusCreated, recorder.Code)
		require.NotNil(t, env.ledger.lastBlock)
		assert.Equal(t, entity.TrailerTypeCovered, env.ledger.lastBlock.TrailerType)
	})

	t.Run("canonical wins over legacy aliases", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/admin/blocks",
			[]byte(`{"trailerType":"COVERED","reason":"service",
				"startDatetime":"2026-02-01T08:00","endDatetime":"2026-02-03T18:00",
				"start":"2026-03-01T08:00","end":"2026-03-03T18:00"}`), auth)
		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.Local), env.ledger.lastBlock.StartAt)
	})

	t.Run("legacy aliases alone are accepted", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/admin/blocks",
			[]byte(`{"trailerType":"COVERED","reason":"service","start":"2026-03-01T08:00","end":"2026-03-03T18:00"}`), auth)
		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local), env.ledger.lastBlock.StartAt)
	})

	t.Run("missing boundaries rejected", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/admin/blocks",
			[]byte(`{"trailerType":"COVERED","reason":"service"}`), auth)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("delete missing block", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodDelete, "/api/admin/blocks/404", nil, auth)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestAdminGetBooking(t *testing.T) {
	auth := map[string]string{"X-Admin-Token": "admin-token"}

	newEnvWithBooking := func() *testEnv {
		env := newTestEnv()
		env.ledger.reserved = &entity.Booking{
			ID:               7,
			BookingReference: "DHS-20260112-000007",
			Status:           entity.BookingStatusPending,
		}
		return env
	}

	t.Run("by numeric id", func(t *testing.T) {
		env := newEnvWithBooking()
		recorder := doRequest(env.router, http.MethodGet, "/api/admin/bookings/7", nil, auth)
		require.Equal(t, http.StatusOK, recorder.Code)
		booking := decodeBody(t, recorder)["booking"].(map[string]interface{})
		assert.Equal(t, "DHS-20260112-000007", booking["booking_reference"])
	})

	t.Run("by booking reference", func(t *testing.T) {
		env := newEnvWithBooking()
		recorder := doRequest(env.router, http.MethodGet, "/api/admin/bookings/DHS-20260112-000007", nil, auth)
		require.Equal(t, http.StatusOK, recorder.Code)
		booking := decodeBody(t, recorder)["booking"].(map[string]interface{})
		assert.Equal(t, float64(7), booking["id"])
	})

	t.Run("unknown reference", func(t *testing.T) {
		env := newEnvWithBooking()
		recorder := doRequest(env.router, http.MethodGet, "/api/admin/bookings/DHS-20260112-000099", nil, auth)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestAdminCancelBooking(t *testing.T) {
	auth := map[string]string{"X-Admin-Token": "admin-token"}

	t.Run("default reason", func(t *testing.T) {
		env := newTestEnv()
		recorder := doRequest(env.router, http.MethodPost, "/api/admin/bookings/7/cancel", nil, auth)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "cancelled by admin", env.machine.lastReason)
	})

	t.Run("confirmed booking rejected", func(t *testing.T) {
		env := newTestEnv()
		env.machine.cancelErr = entity.ErrIllegalTransition
		recorder := doRequest(env.router, http.MethodPost, "/api/admin/bookings/7/cancel", nil, auth)
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}

func TestAdminCreateTestBooking(t *testing.T) {
	auth := map[string]string{"X-Admin-Token": "admin-token"}
	env := newTestEnv()

	recorder := doRequest(env.router, http.MethodPost, "/api/admin/test-bookings",
		[]byte(`{"trailerType":"OPEN_RACK","rentalType":"SHORT","smsTarget":"0701234567"}`), auth)
	require.Equal(t, http.StatusCreated, recorder.Code)
	require.NotNil(t, env.tests.created)
	assert.Equal(t, "0701234567", env.tests.created.SMSTarget)
}

func TestHealthSweeps(t *testing.T) {
	env := newTestEnv()
	recorder := doRequest(env.router, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["ok"])
	assert.Equal(t, int64(1), env.sweeper.calls.Load())
}
