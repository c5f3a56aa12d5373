package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"signage-studio/internal/model"
)

type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) Get(ctx context.Context, blockID int64) (model.Block, error) {
	var b model.Block
	var timelineID *int64
	err := r.pool.QueryRow(ctx,
		`SELECT id, timeline_id, block_type, name, description, icon,
		        length_hours, length_minutes, length_seconds
		 FROM blocks WHERE id = $1`, blockID).
		Scan(&b.ID, &timelineID, &b.Type, &b.Name, &b.Description, &b.Icon,
			&b.Length.Hours, &b.Length.Minutes, &b.Length.Seconds)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Block{}, fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}
	if err != nil {
		return model.Block{}, fmt.Errorf("find block: %w", err)
	}
	if timelineID != nil {
		b.TimelineID = *timelineID
	}
	return b, nil
}

func (r *BlockRepository) Length(ctx context.Context, blockID int64) (model.Length, error) {
	var l model.Length
	err := r.pool.QueryRow(ctx,
		`SELECT length_hours, length_minutes, length_seconds FROM blocks WHERE id = $1`, blockID).
		Scan(&l.Hours, &l.Minutes, &l.Seconds)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Length{}, fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}
	if err != nil {
		return model.Length{}, fmt.Errorf("find block length: %w", err)
	}
	return l, nil
}

func (r *BlockRepository) SetLength(ctx context.Context, blockID int64, length model.Length, version uint64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE blocks
		 SET length_hours = $2, length_minutes = $3, length_seconds = $4,
		     length_version = $5, updated_at = now()
		 WHERE id = $1 AND length_version < $5`,
		blockID, length.Hours, length.Minutes, length.Seconds, int64(version))
	if err != nil {
		return false, fmt.Errorf("update block length: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Nothing updated: either the block is gone or the write is stale.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE id = $1)`, blockID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check block exists: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}
	return false, nil
}

func (r *BlockRepository) Remove(ctx context.Context, blockID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, blockID)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}
	return nil
}
