package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalsjofors/hyrservice/internal/entity"
)

type blockRepository struct {
	db *sql.DB
}

func NewBlockRepository(db *sql.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) Create(ctx context.Context, block *entity.AdminBlock) error {
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO trailer_blocks (trailer_type, start_at, end_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		block.TrailerType,
		block.StartAt,
		block.EndAt,
		block.Reason,
		now,
	).Scan(&block.ID)
	if err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}
	block.CreatedAt = now
	return nil
}

// FindOverlap returns the earliest admin block overlapping the window, or
// ErrBlockNotFound when the window is clear.
func (r *blockRepository) FindOverlap(ctx context.Context, trailerType entity.TrailerType, window entity.Window) (*entity.AdminBlock, error) {
	var block entity.AdminBlock
	err := r.db.QueryRowContext(ctx, `
		SELECT id, trailer_type, start_at, end_at, reason, created_at
		FROM trailer_blocks
		WHERE trailer_type = $1 AND start_at < $2 AND $3 < end_at
		ORDER BY start_at
		LIMIT 1
	`, trailerType, window.End, window.Start).Scan(
		&block.ID,
		&block.TrailerType,
		&block.StartAt,
		&block.EndAt,
		&block.Reason,
		&block.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find block overlap: %w", err)
	}
	return &block, nil
}

func (r *blockRepository) List(ctx context.Context, window *entity.Window) ([]*entity.AdminBlock, error) {
	query := `
		SELECT id, trailer_type, start_at, end_at, reason, created_at
		FROM trailer_blocks
	`
	var args []interface{}
	if window != nil {
		query += ` WHERE start_at < $1 AND $2 < end_at`
		args = append(args, window.End, window.Start)
	}
	query += ` ORDER BY start_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*entity.AdminBlock
	for rows.Next() {
		var block entity.AdminBlock
		err := rows.Scan(
			&block.ID,
			&block.TrailerType,
			&block.StartAt,
			&block.EndAt,
			&block.Reason,
			&block.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, &block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocks: %w", err)
	}
	return blocks, nil
}

func (r *blockRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trailer_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrBlockNotFound
	}
	return nil
}
