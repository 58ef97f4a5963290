package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves the blackout blocks and the ephemeral test-booking
// namespace.
type AdminHandler struct {
	ledger       service.SlotLedger
	testBookings service.TestBookings
}

func NewAdminHandler(ledger service.SlotLedger, testBookings service.TestBookings) *AdminHandler {
	return &AdminHandler{ledger: ledger, testBookings: testBookings}
}

// datetimeLayouts are the accepted block boundary formats, most specific
// first.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDatetime(value string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse datetime %q", entity.ErrInvalidInput, value)
}

type createBlockRequest struct {
	TrailerType string `json:"trailerType"`
	Reason      string `json:"reason"`

	StartDatetime string `json:"startDatetime"`
	EndDatetime   string `json:"endDatetime"`

	// Older admin tooling sends start/end. The canonical fields win
	// when both are present.
	Start string `json:"start"`
	End   string `json:"end"`
}

// CreateBlock: POST /api/admin/blocks
func (h *AdminHandler) CreateBlock(c *gin.Context) {
	var body createBlockRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	startRaw := body.StartDatetime
	if startRaw == "" {
		startRaw = body.Start
	}
	endRaw := body.EndDatetime
	if endRaw == "" {
		endRaw = body.End
	}
	if startRaw == "" || endRaw == "" {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "startDatetime and endDatetime are required", nil)
		return
	}

	trailerType, err := parseTrailerType(body.TrailerType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	startAt, err := parseDatetime(startRaw)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	endAt, err := parseDatetime(endRaw)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if body.Reason == "" {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "reason is required", nil)
		return
	}

	block := &entity.AdminBlock{
		TrailerType: trailerType,
		StartAt:     startAt,
		EndAt:       endAt,
		Reason:      body.Reason,
	}
	if err := h.ledger.CreateBlock(c.Request.Context(), block); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"block": block})
}

// ListBlocks: GET /api/admin/blocks[?from=&to=]
func (h *AdminHandler) ListBlocks(c *gin.Context) {
	var window *entity.Window
	from, to := c.Query("from"), c.Query("to")
	if from != "" && to != "" {
		start, err := parseDatetime(from)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		end, err := parseDatetime(to)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		window = &entity.Window{Start: start, End: end}
	}

	blocks, err := h.ledger.ListBlocks(c.Request.Context(), window)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks, "total": len(blocks)})
}

// DeleteBlock: DELETE /api/admin/blocks/:id
func (h *AdminHandler) DeleteBlock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid block id", nil)
		return
	}

	if err := h.ledger.DeleteBlock(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createTestBookingRequest struct {
	TrailerType string `json:"trailerType"`
	RentalType  string `json:"rentalType"`
	SMSTarget   string `json:"smsTarget"`
}

// CreateTestBooking: POST /api/admin/test-bookings
func (h *AdminHandler) CreateTestBooking(c *gin.Context) {
	var body createTestBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	testBooking, err := h.testBookings.CreateTestBooking(c.Request.Context(),
		entity.TrailerType(body.TrailerType), entity.RentalKind(body.RentalType), body.SMSTarget)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"testBooking": testBooking})
}
