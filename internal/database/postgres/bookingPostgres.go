package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `
	id, booking_reference, trailer_type, rental_kind, start_at, end_at,
	price, status, payment_reference, customer_phone, expires_at,
	confirmed_sent_at, cancelled_sent_at, created_at
`

const activeBookingCondition = `
	(status = 'CONFIRMED' OR (status = 'PENDING' AND expires_at >= $4))
`

// Reserve creates a new booking inside a transaction so the availability
// check and the insert cannot be interleaved by a concurrent writer.
func (r *bookingRepository) Reserve(ctx context.Context, booking *entity.Booking, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Blocks are checked before capacity so a blocked slot reports as
	// blocked even when it is also full.
	var block entity.AdminBlock
	err = tx.QueryRowContext(ctx, `
		SELECT id, trailer_type, start_at, end_at, reason, created_at
		FROM trailer_blocks
		WHERE trailer_type = $1 AND start_at < $2 AND $3 < end_at
		ORDER BY start_at
		LIMIT 1
	`, booking.TrailerType, booking.EndAt, booking.StartAt).Scan(
		&block.ID,
		&block.TrailerType,
		&block.StartAt,
		&block.EndAt,
		&block.Reason,
		&block.CreatedAt,
	)
	if err == nil {
		return &entity.SlotBlockedError{Block: &block}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check trailer blocks: %w", err)
	}

	var overlapping int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE trailer_type = $1
		  AND (start_at < $2 AND $3 < end_at)
		  AND `+activeBookingCondition,
		booking.TrailerType, booking.EndAt, booking.StartAt, now,
	).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	if overlapping >= entity.Capacity {
		return entity.ErrSlotTaken
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bookings (
			trailer_type, rental_kind, start_at, end_at, price, status,
			customer_phone, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		booking.TrailerType,
		booking.RentalKind,
		booking.StartAt,
		booking.EndAt,
		booking.Price,
		entity.BookingStatusPending,
		booking.CustomerPhone,
		booking.ExpiresAt,
		now,
	).Scan(&booking.ID)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	// The reference needs the row id, so it is assigned in the same
	// transaction right after the insert.
	booking.BookingReference = entity.BookingReferenceFor(now, booking.ID)
	if _, err := tx.ExecContext(ctx, `
		UPDATE bookings SET booking_reference = $1 WHERE id = $2
	`, booking.BookingReference, booking.ID); err != nil {
		return fmt.Errorf("failed to assign booking reference: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = entity.BookingStatusPending
	booking.CreatedAt = now
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) GetByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_reference = $1`, reference)
}

func (r *bookingRepository) GetByPaymentReference(ctx context.Context, reference string) (*entity.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference = $1`, reference)
}

func (r *bookingRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.Booking, error) {
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) CountOverlappingActive(ctx context.Context, trailerType entity.TrailerType, window entity.Window, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE trailer_type = $1
		  AND (start_at < $2 AND $3 < end_at)
		  AND `+activeBookingCondition,
		trailerType, window.End, window.Start, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// TransitionStatus performs the guarded update that backs the state
// machine: the row only changes when it is still in the expected source
// status, so concurrent writers resolve to first-commit-wins.
func (r *bookingRepository) TransitionStatus(ctx context.Context, id int64, from, to entity.BookingStatus, clearContact bool) (bool, error) {
	query := `UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3`
	if clearContact {
		query = `UPDATE bookings SET status = $1, customer_phone = '' WHERE id = $2 AND status = $3`
	}

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *bookingRepository) SetPaymentReference(ctx context.Context, id int64, reference string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET payment_reference = $1 WHERE id = $2
	`, reference, id)
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) ClaimNotification(ctx context.Context, id int64, channel entity.NotificationChannel, at time.Time) (bool, error) {
	var column string
	switch channel {
	case entity.ChannelConfirmed:
		column = "confirmed_sent_at"
	case entity.ChannelCancelled:
		column = "cancelled_sent_at"
	default:
		return false, fmt.Errorf("unknown notification channel: %s", channel)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET `+column+` = $1 WHERE id = $2 AND `+column+` IS NULL`,
		at, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *bookingRepository) GetExpired(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = 'PENDING' AND expires_at < $1
		ORDER BY expires_at ASC
	`, before)
}

func (r *bookingRepository) GetAll(ctx context.Context) ([]*entity.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY start_at, id`)
}

func (r *bookingRepository) GetByStatus(ctx context.Context, status entity.BookingStatus) ([]*entity.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1
		ORDER BY start_at, id
	`, status)
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var (
		booking          entity.Booking
		bookingReference sql.NullString
		paymentReference sql.NullString
		customerPhone    sql.NullString
		confirmedSentAt  sql.NullTime
		cancelledSentAt  sql.NullTime
	)
	err := row.Scan(
		&booking.ID,
		&bookingReference,
		&booking.TrailerType,
		&booking.RentalKind,
		&booking.StartAt,
		&booking.EndAt,
		&booking.Price,
		&booking.Status,
		&paymentReference,
		&customerPhone,
		&booking.ExpiresAt,
		&confirmedSentAt,
		&cancelledSentAt,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	booking.BookingReference = bookingReference.String
	booking.PaymentReference = paymentReference.String
	booking.CustomerPhone = customerPhone.String
	if confirmedSentAt.Valid {
		booking.ConfirmedSentAt = &confirmedSentAt.Time
	}
	if cancelledSentAt.Valid {
		booking.CancelledSentAt = &cancelledSentAt.Time
	}
	return &booking, nil
}
