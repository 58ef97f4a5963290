package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
)

type testBookingRepository struct {
	db *sql.DB
}

func NewTestBookingRepository(db *sql.DB) TestBookingRepository {
	return &testBookingRepository{db: db}
}

const testBookingColumns = `
	id, trailer_type, rental_kind, price, status, sms_target,
	promote_due_at, delete_due_at, created_at
`

func (r *testBookingRepository) Create(ctx context.Context, testBooking *entity.TestBooking) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO test_bookings (
			trailer_type, rental_kind, price, status, sms_target,
			promote_due_at, delete_due_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		testBooking.TrailerType,
		testBooking.RentalKind,
		testBooking.Price,
		testBooking.Status,
		testBooking.SMSTarget,
		testBooking.PromoteDueAt,
		testBooking.DeleteDueAt,
		testBooking.CreatedAt,
	).Scan(&testBooking.ID)
	if err != nil {
		return fmt.Errorf("failed to create test booking: %w", err)
	}
	return nil
}

func (r *testBookingRepository) GetByID(ctx context.Context, id int64) (*entity.TestBooking, error) {
	var tb entity.TestBooking
	err := r.db.QueryRowContext(ctx, `
		SELECT `+testBookingColumns+` FROM test_bookings WHERE id = $1
	`, id).Scan(
		&tb.ID,
		&tb.TrailerType,
		&tb.RentalKind,
		&tb.Price,
		&tb.Status,
		&tb.SMSTarget,
		&tb.PromoteDueAt,
		&tb.DeleteDueAt,
		&tb.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrTestBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test booking: %w", err)
	}
	return &tb, nil
}

func (r *testBookingRepository) DuePromotions(ctx context.Context, now time.Time) ([]*entity.TestBooking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+testBookingColumns+` FROM test_bookings
		WHERE status = 'PENDING' AND promote_due_at <= $1
		ORDER BY promote_due_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due test bookings: %w", err)
	}
	defer rows.Close()

	var due []*entity.TestBooking
	for rows.Next() {
		var tb entity.TestBooking
		err := rows.Scan(
			&tb.ID,
			&tb.TrailerType,
			&tb.RentalKind,
			&tb.Price,
			&tb.Status,
			&tb.SMSTarget,
			&tb.PromoteDueAt,
			&tb.DeleteDueAt,
			&tb.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test booking: %w", err)
		}
		due = append(due, &tb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test bookings: %w", err)
	}
	return due, nil
}

// MarkPaid promotes a pending test booking; the guard keeps the promotion
// idempotent under concurrent sweeps.
func (r *testBookingRepository) MarkPaid(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE test_bookings SET status = 'PAID' WHERE id = $1 AND status = 'PENDING'
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark test booking paid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *testBookingRepository) DeleteDue(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM test_bookings WHERE delete_due_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete due test bookings: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
