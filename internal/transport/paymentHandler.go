package transport

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Swish-Signature"

type PaymentHandler struct {
	payments service.PaymentOrchestrator
}

func NewPaymentHandler(payments service.PaymentOrchestrator) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func bookingIDQuery(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("bookingId"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "bookingId must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// GetPayment returns (or reuses) the payment request for a hold:
// GET /api/payment?bookingId=
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := bookingIDQuery(c)
	if !ok {
		return
	}

	result, err := h.payments.CreatePaymentRequest(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPaymentStatus polls the gateway when needed:
// GET /api/payment/status?bookingId=
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	id, ok := bookingIDQuery(c)
	if !ok {
		return
	}

	status, err := h.payments.PaymentStatus(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// SwishCallback receives the gateway's payment resolution:
// POST /api/swish/callback
func (h *PaymentHandler) SwishCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "unreadable body", nil)
		return
	}

	if err := h.payments.HandleCallback(c.Request.Context(), body, c.GetHeader(signatureHeader)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
