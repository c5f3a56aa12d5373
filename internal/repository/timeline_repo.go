package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"signage-studio/internal/model"
)

type TimelineRepository struct {
	pool *pgxpool.Pool
}

func NewTimelineRepository(pool *pgxpool.Pool) *TimelineRepository {
	return &TimelineRepository{pool: pool}
}

// ListByCampaign returns the campaign's sequenced timelines in sequence order.
func (r *TimelineRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]model.Timeline, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1)`, campaignID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check campaign exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("campaign %d: %w", campaignID, model.ErrCampaignNotFound)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.campaign_id, t.name, s.sequence_index, t.screen_props
		 FROM timelines t
		 JOIN campaign_sequences s ON s.timeline_id = t.id
		 WHERE s.campaign_id = $1
		 ORDER BY s.sequence_index, t.id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}
	defer rows.Close()

	timelines := []model.Timeline{}
	for rows.Next() {
		var t model.Timeline
		var props []byte
		if err := rows.Scan(&t.ID, &t.CampaignID, &t.Name, &t.SequenceIndex, &props); err != nil {
			return nil, fmt.Errorf("scan timeline: %w", err)
		}
		t.ScreenProps = props
		timelines = append(timelines, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timelines: %w", err)
	}
	return timelines, nil
}

// Delete removes the timeline. Its sequence entry goes with it.
func (r *TimelineRepository) Delete(ctx context.Context, timelineID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM timelines WHERE id = $1`, timelineID)
	if err != nil {
		return fmt.Errorf("delete timeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("timeline %d: %w", timelineID, model.ErrTimelineNotFound)
	}
	return nil
}
