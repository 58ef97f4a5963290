package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type BookingHandler struct {
	ledger  service.SlotLedger
	machine service.BookingStateMachine
}

func NewBookingHandler(ledger service.SlotLedger, machine service.BookingStateMachine) *BookingHandler {
	return &BookingHandler{ledger: ledger, machine: machine}
}

func parseDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", entity.ErrInvalidInput)
	}
	return date, nil
}

// parseStartAt combines the date with an HH:MM start time.
func parseStartAt(date time.Time, value string) (time.Time, error) {
	clock, err := time.ParseInLocation(timeLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: startTime must be HH:MM", entity.ErrInvalidInput)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}

func parseRentalKind(value string) (entity.RentalKind, error) {
	kind := entity.RentalKind(value)
	if !kind.Valid() {
		return "", fmt.Errorf("%w: rentalType must be SHORT or FULL_DAY", entity.ErrInvalidInput)
	}
	return kind, nil
}

func parseTrailerType(value string) (entity.TrailerType, error) {
	trailerType := entity.TrailerType(value)
	if !trailerType.Valid() {
		return "", fmt.Errorf("%w: trailerType must be OPEN_RACK or COVERED", entity.ErrInvalidInput)
	}
	return trailerType, nil
}

// GetPrice is a pure quote: GET /api/price?rentalType=&date=
func (h *BookingHandler) GetPrice(c *gin.Context) {
	kind, err := parseRentalKind(c.Query("rentalType"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	date, err := parseDate(c.Query("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	price, err := h.ledger.Price(kind, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	dayType := "weekday"
	switch {
	case config.IsHoliday(date):
		dayType = "holiday"
	case date.Weekday() == time.Saturday || date.Weekday() == time.Sunday:
		dayType = "weekend"
	}

	c.JSON(http.StatusOK, gin.H{"price": price, "dayType": dayType})
}

// GetAvailability reports capacity and block state for one slot.
func (h *BookingHandler) GetAvailability(c *gin.Context) {
	req, err := h.slotRequest(c.Query("trailerType"), c.Query("rentalType"), c.Query("date"), c.Query("startTime"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := h.ledger.Availability(c.Request.Context(), service.AvailabilityRequest{
		TrailerType: req.TrailerType,
		RentalKind:  req.RentalKind,
		Date:        req.Date,
		StartAt:     req.StartAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type holdRequest struct {
	TrailerType   string `json:"trailerType"`
	RentalType    string `json:"rentalType"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	CustomerPhone string `json:"customerPhone"`
}

// CreateHold places a PENDING hold: POST /api/hold
func (h *BookingHandler) CreateHold(c *gin.Context) {
	var body holdRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	req, err := h.slotRequest(body.TrailerType, body.RentalType, body.Date, body.StartTime)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	req.CustomerPhone = body.CustomerPhone

	booking, err := h.ledger.Reserve(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"bookingId":        booking.ID,
		"bookingReference": booking.BookingReference,
		"createdAt":        booking.CreatedAt,
		"price":            booking.Price,
		"expiresAt":        booking.ExpiresAt,
	})
}

func (h *BookingHandler) slotRequest(trailerType, rentalType, date, startTime string) (service.ReserveRequest, error) {
	tt, err := parseTrailerType(trailerType)
	if err != nil {
		return service.ReserveRequest{}, err
	}
	kind, err := parseRentalKind(rentalType)
	if err != nil {
		return service.ReserveRequest{}, err
	}
	day, err := parseDate(date)
	if err != nil {
		return service.ReserveRequest{}, err
	}

	req := service.ReserveRequest{TrailerType: tt, RentalKind: kind, Date: day}
	if kind == entity.RentalKindShort {
		if startTime == "" {
			return service.ReserveRequest{}, fmt.Errorf("%w: startTime is required for short rentals", entity.ErrInvalidInput)
		}
		req.StartAt, err = parseStartAt(day, startTime)
		if err != nil {
			return service.ReserveRequest{}, err
		}
	}
	return req, nil
}

// ListBookings is the admin listing: GET /api/admin/bookings?status=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	status := entity.BookingStatus(c.Query("status"))
	if status != "" {
		switch status {
		case entity.BookingStatusPending, entity.BookingStatusConfirmed, entity.BookingStatusCancelled:
		default:
			respondError(c, http.StatusBadRequest, "INVALID_INPUT", "unknown booking status", nil)
			return
		}
	}

	bookings, err := h.ledger.ListBookings(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "total": len(bookings)})
}

// GetBooking is the admin lookup: GET /api/admin/bookings/:id
// The :id segment takes either the numeric id or a booking reference.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	raw := c.Param("id")

	var (
		booking *entity.Booking
		err     error
	)
	if id, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
		booking, err = h.ledger.GetBooking(c.Request.Context(), id)
	} else {
		booking, err = h.ledger.GetBookingByReference(c.Request.Context(), raw)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking is the admin cancel: POST /api/admin/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid booking id", nil)
		return
	}

	var body cancelRequest
	// Body is optional; an empty cancel defaults its reason.
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "cancelled by admin"
	}

	booking, err := h.machine.CancelBooking(c.Request.Context(), id, body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
