package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"signage-studio/internal/model"
)

const pgForeignKeyViolation = "23503"

type SequenceRepository struct {
	pool *pgxpool.Pool
}

func NewSequenceRepository(pool *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

func (r *SequenceRepository) SetIndex(ctx context.Context, campaignID, timelineID int64, index int, version uint64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO campaign_sequences (timeline_id, campaign_id, sequence_index, version)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (timeline_id) DO UPDATE
		 SET campaign_id = EXCLUDED.campaign_id,
		     sequence_index = EXCLUDED.sequence_index,
		     version = EXCLUDED.version,
		     updated_at = now()
		 WHERE campaign_sequences.version < EXCLUDED.version`,
		timelineID, campaignID, index, int64(version))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return false, fmt.Errorf("campaign %d timeline %d: %w", campaignID, timelineID, model.ErrTimelineNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("upsert sequence index: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove is a no-op for timelines that are not sequenced.
func (r *SequenceRepository) Remove(ctx context.Context, timelineID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM campaign_sequences WHERE timeline_id = $1`, timelineID); err != nil {
		return fmt.Errorf("delete sequence entry: %w", err)
	}
	return nil
}

func (r *SequenceRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]model.SequenceEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT campaign_id, timeline_id, sequence_index, version
		 FROM campaign_sequences
		 WHERE campaign_id = $1
		 ORDER BY sequence_index, timeline_id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list sequence entries: %w", err)
	}
	defer rows.Close()

	var entries []model.SequenceEntry
	for rows.Next() {
		var e model.SequenceEntry
		var version int64
		if err := rows.Scan(&e.CampaignID, &e.TimelineID, &e.SequenceIndex, &version); err != nil {
			return nil, fmt.Errorf("scan sequence entry: %w", err)
		}
		e.Version = uint64(version)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequence entries: %w", err)
	}
	return entries, nil
}

func (r *SequenceRepository) CampaignIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT campaign_id FROM campaign_sequences ORDER BY campaign_id`)
	if err != nil {
		return nil, fmt.Errorf("list sequenced campaigns: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect sequenced campaigns: %w", err)
	}
	return ids, nil
}

// Reindex writes every entry's index and version in a single transaction.
// Each row is only touched if its stored version is not newer.
func (r *SequenceRepository) Reindex(ctx context.Context, entries []model.SequenceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reindex: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`UPDATE campaign_sequences
			 SET sequence_index = $3, version = $4, updated_at = now()
			 WHERE campaign_id = $1 AND timeline_id = $2 AND version < $4`,
			e.CampaignID, e.TimelineID, e.SequenceIndex, int64(e.Version))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("reindex batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reindex: %w", err)
	}
	return nil
}
