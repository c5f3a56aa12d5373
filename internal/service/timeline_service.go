package service

import (
	"context"
	"log/slog"

	"signage-studio/internal/event"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
)

type TimelineService struct {
	timelines repository.TimelineStore
	bus       event.Bus
}

func NewTimelineService(timelines repository.TimelineStore, bus event.Bus) *TimelineService {
	return &TimelineService{timelines: timelines, bus: bus}
}

func (s *TimelineService) List(ctx context.Context, campaignID int64) (model.TimelineListData, error) {
	if err := positiveID("campaign_id", campaignID); err != nil {
		return model.TimelineListData{}, err
	}

	timelines, err := s.timelines.ListByCampaign(ctx, campaignID)
	if err != nil {
		return model.TimelineListData{}, err
	}
	if timelines == nil {
		timelines = []model.Timeline{}
	}
	return model.TimelineListData{CampaignID: campaignID, Timelines: timelines}, nil
}

// Delete removes the timeline and notifies every connected console.
func (s *TimelineService) Delete(ctx context.Context, timelineID int64) error {
	if err := positiveID("timeline_id", timelineID); err != nil {
		return err
	}
	if err := s.timelines.Delete(ctx, timelineID); err != nil {
		return err
	}

	slog.Info("timeline deleted", "timeline_id", timelineID)
	s.bus.Publish(event.New(event.TypeTimelineDeleted, model.TimelineDeletedPayload{TimelineID: timelineID}))
	return nil
}
