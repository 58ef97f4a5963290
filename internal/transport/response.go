package transport

import (
	"errors"
	"net/http"

	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/gin-gonic/gin"
)

// ErrorInfo is the structured half of the error envelope.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorEnvelope is the uniform error body. The top-level "error" string
// is kept for older clients; new clients read errorInfo.
type ErrorEnvelope struct {
	Error     string    `json:"error"`
	ErrorInfo ErrorInfo `json:"errorInfo"`
}

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: message,
		ErrorInfo: ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondServiceError maps business errors to HTTP statuses and the
// envelope. Anything unmapped is a 500 with a generic message.
func respondServiceError(c *gin.Context, err error) {
	if blocked, ok := entity.IsSlotBlocked(err); ok {
		respondError(c, http.StatusConflict, "SLOT_BLOCKED", "slot blocked", map[string]interface{}{
			"block": blocked.Block,
		})
		return
	}

	switch {
	case errors.Is(err, entity.ErrSlotTaken):
		respondError(c, http.StatusConflict, "SLOT_TAKEN", "slot taken", nil)
	case errors.Is(err, entity.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, entity.ErrBookingNotFound):
		respondError(c, http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found", nil)
	case errors.Is(err, entity.ErrBlockNotFound):
		respondError(c, http.StatusNotFound, "BLOCK_NOT_FOUND", "block not found", nil)
	case errors.Is(err, entity.ErrTestBookingNotFound):
		respondError(c, http.StatusNotFound, "TEST_BOOKING_NOT_FOUND", "test booking not found", nil)
	case errors.Is(err, entity.ErrIllegalTransition):
		respondError(c, http.StatusConflict, "ILLEGAL_TRANSITION", err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidSignature):
		respondError(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid callback signature", nil)
	case errors.Is(err, entity.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
	case errors.Is(err, entity.ErrGatewayUnavailable):
		respondError(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "payment gateway unavailable", nil)
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
