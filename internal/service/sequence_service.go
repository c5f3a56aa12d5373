package service

import (
	"context"
	"fmt"
	"log/slog"

	"signage-studio/internal/event"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
)

type SequenceService struct {
	sequences repository.SequenceStore
	bus       event.Bus
}

func NewSequenceService(sequences repository.SequenceStore, bus event.Bus) *SequenceService {
	return &SequenceService{sequences: sequences, bus: bus}
}

func (s *SequenceService) SetIndex(ctx context.Context, campaignID, timelineID int64, index int, version uint64) (model.WriteResult, error) {
	if err := positiveID("campaign_id", campaignID); err != nil {
		return model.WriteResult{}, err
	}
	if err := positiveID("timeline_id", timelineID); err != nil {
		return model.WriteResult{}, err
	}
	if index < 0 {
		return model.WriteResult{}, fmt.Errorf("%w: %d", model.ErrInvalidIndex, index)
	}

	applied, err := s.sequences.SetIndex(ctx, campaignID, timelineID, index, version)
	if err != nil {
		return model.WriteResult{}, err
	}
	if !applied {
		slog.Debug("stale sequence write ignored", "timeline_id", timelineID, "version", version)
		return model.WriteResult{Applied: false, Version: version}, nil
	}

	s.bus.Publish(event.New(event.TypeSequenceChanged, model.SequenceEntry{
		CampaignID:    campaignID,
		TimelineID:    timelineID,
		SequenceIndex: index,
		Version:       version,
	}))
	return model.WriteResult{Applied: true, Version: version}, nil
}

// Remove drops the timeline from every campaign sequence. Unsequenced
// timelines are accepted.
func (s *SequenceService) Remove(ctx context.Context, timelineID int64) error {
	if err := positiveID("timeline_id", timelineID); err != nil {
		return err
	}
	return s.sequences.Remove(ctx, timelineID)
}

func (s *SequenceService) List(ctx context.Context, campaignID int64) ([]model.SequenceEntry, error) {
	if err := positiveID("campaign_id", campaignID); err != nil {
		return nil, err
	}
	return s.sequences.ListByCampaign(ctx, campaignID)
}
