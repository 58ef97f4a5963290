package service

import (
	"context"
	"sync"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/dalsjofors/hyrservice/internal/entity"
)

// In-memory repositories for service-level tests. They reproduce the
// atomicity contract of the Postgres layer: every method takes the store
// lock, and Reserve runs its checks and insert under it.

type memoryStore struct {
	mu sync.Mutex

	nextBookingID int64
	bookings      map[int64]*entity.Booking

	nextBlockID int64
	blocks      map[int64]*entity.AdminBlock

	nextTestID   int64
	testBookings map[int64]*entity.TestBooking
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		bookings:     make(map[int64]*entity.Booking),
		blocks:       make(map[int64]*entity.AdminBlock),
		testBookings: make(map[int64]*entity.TestBooking),
	}
}

type memoryBookingRepo struct{ store *memoryStore }
type memoryBlockRepo struct{ store *memoryStore }
type memoryTestBookingRepo struct{ store *memoryStore }

func (r *memoryBookingRepo) Reserve(_ context.Context, booking *entity.Booking, now time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	window := booking.Window()
	for _, block := range s.blocks {
		if block.TrailerType == booking.TrailerType && block.Window().Overlaps(window) {
			blockCopy := *block
			return &entity.SlotBlockedError{Block: &blockCopy}
		}
	}

	count := 0
	for _, existing := range s.bookings {
		if existing.TrailerType == booking.TrailerType && existing.Active(now) && existing.Window().Overlaps(window) {
			count++
		}
	}
	if count >= entity.Capacity {
		return entity.ErrSlotTaken
	}

	s.nextBookingID++
	booking.ID = s.nextBookingID
	booking.CreatedAt = now
	booking.BookingReference = entity.BookingReferenceFor(now, booking.ID)

	stored := *booking
	s.bookings[booking.ID] = &stored
	return nil
}

func (r *memoryBookingRepo) GetByID(_ context.Context, id int64) (*entity.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	bookingCopy := *booking
	return &bookingCopy, nil
}

func (r *memoryBookingRepo) GetByReference(_ context.Context, reference string) (*entity.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, booking := range s.bookings {
		if booking.BookingReference == reference {
			bookingCopy := *booking
			return &bookingCopy, nil
		}
	}
	return nil, entity.ErrBookingNotFound
}

func (r *memoryBookingRepo) GetByPaymentReference(_ context.Context, reference string) (*entity.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, booking := range s.bookings {
		if booking.PaymentReference == reference && reference != "" {
			bookingCopy := *booking
			return &bookingCopy, nil
		}
	}
	return nil, entity.ErrBookingNotFound
}

func (r *memoryBookingRepo) CountOverlappingActive(_ context.Context, trailerType entity.TrailerType, window entity.Window, now time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, booking := range s.bookings {
		if booking.TrailerType == trailerType && booking.Active(now) && booking.Window().Overlaps(window) {
			count++
		}
	}
	return count, nil
}

func (r *memoryBookingRepo) TransitionStatus(_ context.Context, id int64, from, to entity.BookingStatus, clearContact bool) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	if clearContact {
		booking.CustomerPhone = ""
	}
	return true, nil
}

func (r *memoryBookingRepo) SetPaymentReference(_ context.Context, id int64, reference string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return entity.ErrBookingNotFound
	}
	booking.PaymentReference = reference
	return nil
}

func (r *memoryBookingRepo) ClaimNotification(_ context.Context, id int64, channel entity.NotificationChannel, at time.Time) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return false, entity.ErrBookingNotFound
	}
	switch channel {
	case entity.ChannelConfirmed:
		if booking.ConfirmedSentAt != nil {
			return false, nil
		}
		booking.ConfirmedSentAt = &at
	case entity.ChannelCancelled:
		if booking.CancelledSentAt != nil {
			return false, nil
		}
		booking.CancelledSentAt = &at
	}
	return true, nil
}

func (r *memoryBookingRepo) GetExpired(_ context.Context, before time.Time) ([]*entity.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*entity.Booking
	for _, booking := range s.bookings {
		if booking.Status == entity.BookingStatusPending && !booking.ExpiresAt.IsZero() && !booking.ExpiresAt.After(before) {
			bookingCopy := *booking
			expired = append(expired, &bookingCopy)
		}
	}
	return expired, nil
}

func (r *memoryBookingRepo) GetAll(_ context.Context) ([]*entity.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*entity.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		bookingCopy := *booking
		all = append(all, &bookingCopy)
	}
	return all, nil
}

func (r *memoryBookingRepo) GetByStatus(_ context.Context, status entity.BookingStatus) ([]*entity.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entity.Booking
	for _, booking := range s.bookings {
		if booking.Status == status {
			bookingCopy := *booking
			matched = append(matched, &bookingCopy)
		}
	}
	return matched, nil
}

func (r *memoryBlockRepo) Create(_ context.Context, block *entity.AdminBlock) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBlockID++
	block.ID = s.nextBlockID
	stored := *block
	s.blocks[block.ID] = &stored
	return nil
}

func (r *memoryBlockRepo) FindOverlap(_ context.Context, trailerType entity.TrailerType, window entity.Window) (*entity.AdminBlock, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, block := range s.blocks {
		if block.TrailerType == trailerType && block.Window().Overlaps(window) {
			blockCopy := *block
			return &blockCopy, nil
		}
	}
	return nil, entity.ErrBlockNotFound
}

func (r *memoryBlockRepo) List(_ context.Context, window *entity.Window) ([]*entity.AdminBlock, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocks []*entity.AdminBlock
	for _, block := range s.blocks {
		if window == nil || block.Window().Overlaps(*window) {
			blockCopy := *block
			blocks = append(blocks, &blockCopy)
		}
	}
	return blocks, nil
}

func (r *memoryBlockRepo) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[id]; !ok {
		return entity.ErrBlockNotFound
	}
	delete(s.blocks, id)
	return nil
}

func (r *memoryTestBookingRepo) Create(_ context.Context, testBooking *entity.TestBooking) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTestID++
	testBooking.ID = s.nextTestID
	stored := *testBooking
	s.testBookings[testBooking.ID] = &stored
	return nil
}

func (r *memoryTestBookingRepo) GetByID(_ context.Context, id int64) (*entity.TestBooking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	testBooking, ok := s.testBookings[id]
	if !ok {
		return nil, entity.ErrTestBookingNotFound
	}
	testCopy := *testBooking
	return &testCopy, nil
}

func (r *memoryTestBookingRepo) DuePromotions(_ context.Context, now time.Time) ([]*entity.TestBooking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*entity.TestBooking
	for _, testBooking := range s.testBookings {
		if testBooking.Status == entity.TestBookingStatusPending && !testBooking.PromoteDueAt.After(now) {
			testCopy := *testBooking
			due = append(due, &testCopy)
		}
	}
	return due, nil
}

func (r *memoryTestBookingRepo) MarkPaid(_ context.Context, id int64) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	testBooking, ok := s.testBookings[id]
	if !ok || testBooking.Status != entity.TestBookingStatusPending {
		return false, nil
	}
	testBooking.Status = entity.TestBookingStatusPaid
	return true, nil
}

func (r *memoryTestBookingRepo) DeleteDue(_ context.Context, now time.Time) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, testBooking := range s.testBookings {
		if !testBooking.DeleteDueAt.After(now) {
			delete(s.testBookings, id)
			deleted++
		}
	}
	return deleted, nil
}

// recordingHooks captures hook invocations for assertions.
type recordingHooks struct {
	mu        sync.Mutex
	confirmed []*entity.Booking
	cancelled []*entity.Booking
	reasons   []string
	testPaid  []*entity.TestBooking
}

func (h *recordingHooks) BookingConfirmed(_ context.Context, booking *entity.Booking) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.confirmed = append(h.confirmed, booking)
}

func (h *recordingHooks) BookingCancelled(_ context.Context, booking *entity.Booking, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = append(h.cancelled, booking)
	h.reasons = append(h.reasons, reason)
}

func (h *recordingHooks) TestBookingPaid(_ context.Context, testBooking *entity.TestBooking) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.testPaid = append(h.testPaid, testBooking)
}

func testConfig() *config.Config {
	return &config.Config{
		Booking: config.BookingConfig{
			HoldTTL:   10 * time.Minute,
			OpenHour:  7,
			CloseHour: 21,
		},
		Swish: config.SwishConfig{
			Mode:          "mock",
			MerchantAlias: "1234945580",
			Secret:        "callback-secret",
		},
		Worker: config.WorkerConfig{
			TestBookingInterval: 30 * time.Second,
			PromoteDelay:        time.Minute,
			DeleteDelay:         5 * time.Minute,
		},
	}
}

type fixture struct {
	store    *memoryStore
	bookings *memoryBookingRepo
	blocks   *memoryBlockRepo
	tests    *memoryTestBookingRepo
	hooks    *recordingHooks
	cfg      *config.Config
}

func newFixture() *fixture {
	store := newMemoryStore()
	return &fixture{
		store:    store,
		bookings: &memoryBookingRepo{store: store},
		blocks:   &memoryBlockRepo{store: store},
		tests:    &memoryTestBookingRepo{store: store},
		hooks:    &recordingHooks{},
		cfg:      testConfig(),
	}
}
