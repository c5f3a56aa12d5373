package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"signage-studio/internal/event"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
)

func gapped() []model.SequenceEntry {
	return []model.SequenceEntry{
		{CampaignID: 1, TimelineID: 10, SequenceIndex: 0, Version: 5},
		{CampaignID: 1, TimelineID: 11, SequenceIndex: 2, Version: 5},
		{CampaignID: 1, TimelineID: 12, SequenceIndex: 3, Version: 5000},
	}
}

func TestSequenceAuditor_Audit(t *testing.T) {
	ctx := context.Background()

	t.Run("contiguous campaigns produce no report", func(t *testing.T) {
		store := new(repository.MockSequenceStore)
		store.On("CampaignIDs", mock.Anything).Return([]int64{1}, nil)
		store.On("ListByCampaign", mock.Anything, int64(1)).Return([]model.SequenceEntry{
			{CampaignID: 1, TimelineID: 10, SequenceIndex: 0},
			{CampaignID: 1, TimelineID: 11, SequenceIndex: 1},
		}, nil)

		reports, err := NewSequenceAuditor(store, event.NewBus(), "@every 1m", true).Audit(ctx)

		require.NoError(t, err)
		assert.Empty(t, reports)
		store.AssertNotCalled(t, "Reindex", mock.Anything, mock.Anything)
	})

	t.Run("detects gaps without repairing", func(t *testing.T) {
		store := new(repository.MockSequenceStore)
		store.On("CampaignIDs", mock.Anything).Return([]int64{1}, nil)
		store.On("ListByCampaign", mock.Anything, int64(1)).Return(gapped(), nil)

		reports, err := NewSequenceAuditor(store, event.NewBus(), "@every 1m", false).Audit(ctx)

		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, []int64{11, 12}, reports[0].Misplaced)
		assert.False(t, reports[0].Repaired)
		store.AssertNotCalled(t, "Reindex", mock.Anything, mock.Anything)
	})

	t.Run("repairs misplaced entries with newer versions", func(t *testing.T) {
		store := new(repository.MockSequenceStore)
		bus := event.NewBus()
		events, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		store.On("CampaignIDs", mock.Anything).Return([]int64{1}, nil)
		store.On("ListByCampaign", mock.Anything, int64(1)).Return(gapped(), nil)
		store.On("Reindex", mock.Anything, []model.SequenceEntry{
			{CampaignID: 1, TimelineID: 11, SequenceIndex: 1, Version: 1000},
			{CampaignID: 1, TimelineID: 12, SequenceIndex: 2, Version: 5001},
		}).Return(nil)

		auditor := NewSequenceAuditor(store, bus, "@every 1m", true)
		auditor.now = func() time.Time { return time.Unix(0, 1000) }

		reports, err := auditor.Audit(ctx)

		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.True(t, reports[0].Repaired)
		assert.Equal(t, event.TypeSequenceRepaired, (<-events).Type)
		store.AssertExpectations(t)
	})

	t.Run("one failing campaign does not stop the others", func(t *testing.T) {
		store := new(repository.MockSequenceStore)
		store.On("CampaignIDs", mock.Anything).Return([]int64{1, 2}, nil)
		store.On("ListByCampaign", mock.Anything, int64(1)).Return(nil, errors.New("timeout"))
		store.On("ListByCampaign", mock.Anything, int64(2)).Return(gapped(), nil)

		reports, err := NewSequenceAuditor(store, event.NewBus(), "@every 1m", false).Audit(ctx)

		assert.Error(t, err)
		assert.Len(t, reports, 1)
	})
}

func TestSequenceAuditor_Run(t *testing.T) {
	t.Run("rejects a bad schedule", func(t *testing.T) {
		auditor := NewSequenceAuditor(new(repository.MockSequenceStore), event.NewBus(), "not a schedule", false)
		assert.Error(t, auditor.Run(context.Background()))
	})

	t.Run("returns when cancelled", func(t *testing.T) {
		store := new(repository.MockSequenceStore)
		store.On("CampaignIDs", mock.Anything).Return([]int64{}, nil).Maybe()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- NewSequenceAuditor(store, event.NewBus(), "@every 1h", false).Run(ctx) }()

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("auditor did not stop")
		}
	})
}
