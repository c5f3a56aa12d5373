package repository

import (
	"context"

	"signage-studio/internal/model"
)

// BlockStore persists channel blocks and their versioned length.
type BlockStore interface {
	Get(ctx context.Context, blockID int64) (model.Block, error)
	Length(ctx context.Context, blockID int64) (model.Length, error)
	// SetLength reports false when a newer version is already stored.
	SetLength(ctx context.Context, blockID int64, length model.Length, version uint64) (bool, error)
	Remove(ctx context.Context, blockID int64) error
}

// SequenceStore persists the per-campaign timeline order.
type SequenceStore interface {
	// SetIndex reports false when a newer version is already stored.
	SetIndex(ctx context.Context, campaignID, timelineID int64, index int, version uint64) (bool, error)
	Remove(ctx context.Context, timelineID int64) error
	ListByCampaign(ctx context.Context, campaignID int64) ([]model.SequenceEntry, error)
	CampaignIDs(ctx context.Context) ([]int64, error)
	Reindex(ctx context.Context, entries []model.SequenceEntry) error
}

type TimelineStore interface {
	ListByCampaign(ctx context.Context, campaignID int64) ([]model.Timeline, error)
	Delete(ctx context.Context, timelineID int64) error
}
