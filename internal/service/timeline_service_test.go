package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"signage-studio/internal/event"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
)

func TestTimelineService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes timeline.deleted", func(t *testing.T) {
		store := new(repository.MockTimelineStore)
		bus := event.NewBus()
		events, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		store.On("Delete", mock.Anything, int64(12)).Return(nil)

		require.NoError(t, NewTimelineService(store, bus).Delete(ctx, 12))

		e := <-events
		assert.Equal(t, event.TypeTimelineDeleted, e.Type)
		assert.Equal(t, model.TimelineDeletedPayload{TimelineID: 12}, e.Payload)
	})

	t.Run("unknown timeline publishes nothing", func(t *testing.T) {
		store := new(repository.MockTimelineStore)
		bus := event.NewBus()
		events, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		store.On("Delete", mock.Anything, int64(12)).Return(model.ErrTimelineNotFound)

		err := NewTimelineService(store, bus).Delete(ctx, 12)

		assert.ErrorIs(t, err, model.ErrTimelineNotFound)
		assert.Empty(t, events)
	})
}

func TestTimelineService_List(t *testing.T) {
	ctx := context.Background()
	store := new(repository.MockTimelineStore)
	svc := NewTimelineService(store, event.NewBus())

	store.On("ListByCampaign", mock.Anything, int64(1)).Return(nil, nil)
	store.On("ListByCampaign", mock.Anything, int64(2)).Return(nil, model.ErrCampaignNotFound)

	data, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.CampaignID)
	assert.NotNil(t, data.Timelines)
	assert.Empty(t, data.Timelines)

	_, err = svc.List(ctx, 2)
	assert.ErrorIs(t, err, model.ErrCampaignNotFound)
}
