package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/entity"
	"github.com/sirupsen/logrus"
)

// Pricing is fixed: nothing besides rental kind and calendar day may
// influence the price.
const (
	priceShort          = 200
	priceFullDayWeekday = 250
	priceFullDayWeekend = 300
)

// LedgerService is the slot ledger. Reserve runs under a per-trailer-type
// mutex so that concurrent holds for the same inventory serialize in
// process; the repository re-checks inside its own transaction as well.
type LedgerService struct {
	cfg      *config.Config
	bookings repository.BookingRepository
	blocks   repository.BlockRepository

	locks map[entity.TrailerType]*sync.Mutex

	// now is swappable in tests.
	now func() time.Time
}

func NewLedgerService(cfg *config.Config, bookings repository.BookingRepository, blocks repository.BlockRepository) *LedgerService {
	return &LedgerService{
		cfg:      cfg,
		bookings: bookings,
		blocks:   blocks,
		locks: map[entity.TrailerType]*sync.Mutex{
			entity.TrailerTypeOpenRack: {},
			entity.TrailerTypeCovered:  {},
		},
		now: time.Now,
	}
}

func (s *LedgerService) Price(kind entity.RentalKind, date time.Time) (int, error) {
	switch kind {
	case entity.RentalKindShort:
		return priceShort, nil
	case entity.RentalKindFullDay:
		if config.IsWeekendOrHoliday(date) {
			return priceFullDayWeekend, nil
		}
		return priceFullDayWeekday, nil
	default:
		return 0, fmt.Errorf("%w: unknown rental kind %q", entity.ErrInvalidInput, kind)
	}
}

func (s *LedgerService) Availability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
	window, err := s.windowFor(req.RentalKind, req.Date, req.StartAt)
	if err != nil {
		return nil, err
	}
	if !req.TrailerType.Valid() {
		return nil, fmt.Errorf("%w: unknown trailer type %q", entity.ErrInvalidInput, req.TrailerType)
	}

	result := &AvailabilityResult{}

	block, err := s.blocks.FindOverlap(ctx, req.TrailerType, window)
	switch {
	case err == nil:
		result.Blocked = true
		result.BlockReason = block.Reason
	case errors.Is(err, entity.ErrBlockNotFound):
		// no block, fall through to capacity
	default:
		return nil, err
	}

	count, err := s.bookings.CountOverlappingActive(ctx, req.TrailerType, window, s.now())
	if err != nil {
		return nil, err
	}
	result.Remaining = entity.Capacity - count
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	result.Available = !result.Blocked && result.Remaining > 0
	return result, nil
}

func (s *LedgerService) Reserve(ctx context.Context, req ReserveRequest) (*entity.Booking, error) {
	if !req.TrailerType.Valid() {
		return nil, fmt.Errorf("%w: unknown trailer type %q", entity.ErrInvalidInput, req.TrailerType)
	}
	window, err := s.windowFor(req.RentalKind, req.Date, req.StartAt)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !window.End.After(now) {
		return nil, fmt.Errorf("%w: slot lies in the past", entity.ErrInvalidInput)
	}

	price, err := s.Price(req.RentalKind, window.Start)
	if err != nil {
		return nil, err
	}

	booking := &entity.Booking{
		TrailerType:   req.TrailerType,
		RentalKind:    req.RentalKind,
		StartAt:       window.Start,
		EndAt:         window.End,
		Price:         price,
		Status:        entity.BookingStatusPending,
		CustomerPhone: req.CustomerPhone,
		ExpiresAt:     now.Add(s.cfg.Booking.HoldTTL),
	}

	lock := s.locks[req.TrailerType]
	lock.Lock()
	defer lock.Unlock()

	if err := s.bookings.Reserve(ctx, booking, now); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
		"trailer_type":      booking.TrailerType,
		"rental_kind":       booking.RentalKind,
		"price":             booking.Price,
	}).Info("Hold created")
	return booking, nil
}

func (s *LedgerService) GetBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// GetBookingByReference resolves a customer-facing booking reference
// (DHS-...) back to its booking.
func (s *LedgerService) GetBookingByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	return s.bookings.GetByReference(ctx, reference)
}

// ListBookings returns all bookings, or only those in the given status
// when one is provided.
func (s *LedgerService) ListBookings(ctx context.Context, status entity.BookingStatus) ([]*entity.Booking, error) {
	if status == "" {
		return s.bookings.GetAll(ctx)
	}
	return s.bookings.GetByStatus(ctx, status)
}

func (s *LedgerService) CreateBlock(ctx context.Context, block *entity.AdminBlock) error {
	if !block.TrailerType.Valid() {
		return fmt.Errorf("%w: unknown trailer type %q", entity.ErrInvalidInput, block.TrailerType)
	}
	if !block.Window().Valid() {
		return fmt.Errorf("%w: block end must be after start", entity.ErrInvalidInput)
	}
	return s.blocks.Create(ctx, block)
}

func (s *LedgerService) ListBlocks(ctx context.Context, window *entity.Window) ([]*entity.AdminBlock, error) {
	return s.blocks.List(ctx, window)
}

func (s *LedgerService) DeleteBlock(ctx context.Context, id int64) error {
	return s.blocks.Delete(ctx, id)
}

// windowFor builds and validates the booked interval. FULL_DAY covers the
// calendar day; SHORT is a fixed two hours starting on a 30-minute
// boundary inside the service window.
func (s *LedgerService) windowFor(kind entity.RentalKind, date, startAt time.Time) (entity.Window, error) {
	switch kind {
	case entity.RentalKindFullDay:
		return entity.FullDayWindow(date), nil
	case entity.RentalKindShort:
		if startAt.IsZero() {
			return entity.Window{}, fmt.Errorf("%w: start time is required for short rentals", entity.ErrInvalidInput)
		}
		if startAt.Minute()%30 != 0 || startAt.Second() != 0 || startAt.Nanosecond() != 0 {
			return entity.Window{}, fmt.Errorf("%w: start time must be on a 30-minute boundary", entity.ErrInvalidInput)
		}
		window := entity.ShortWindow(startAt)
		opensAt := time.Date(startAt.Year(), startAt.Month(), startAt.Day(), s.cfg.Booking.OpenHour, 0, 0, 0, startAt.Location())
		closesAt := time.Date(startAt.Year(), startAt.Month(), startAt.Day(), s.cfg.Booking.CloseHour, 0, 0, 0, startAt.Location())
		if window.Start.Before(opensAt) || window.End.After(closesAt) {
			return entity.Window{}, fmt.Errorf("%w: start time must fall between %02d:00 and %02d:00",
				entity.ErrInvalidInput, s.cfg.Booking.OpenHour, s.cfg.Booking.CloseHour)
		}
		return window, nil
	default:
		return entity.Window{}, fmt.Errorf("%w: unknown rental kind %q", entity.ErrInvalidInput, kind)
	}
}
