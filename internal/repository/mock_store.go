package repository

import (
	"context"

	"github.com/stretchr/testify/mock"

	"signage-studio/internal/model"
)

type MockBlockStore struct {
	mock.Mock
}

func (m *MockBlockStore) Get(ctx context.Context, blockID int64) (model.Block, error) {
	args := m.Called(ctx, blockID)
	return args.Get(0).(model.Block), args.Error(1)
}

func (m *MockBlockStore) Length(ctx context.Context, blockID int64) (model.Length, error) {
	args := m.Called(ctx, blockID)
	return args.Get(0).(model.Length), args.Error(1)
}

func (m *MockBlockStore) SetLength(ctx context.Context, blockID int64, length model.Length, version uint64) (bool, error) {
	args := m.Called(ctx, blockID, length, version)
	return args.Bool(0), args.Error(1)
}

func (m *MockBlockStore) Remove(ctx context.Context, blockID int64) error {
	args := m.Called(ctx, blockID)
	return args.Error(0)
}

type MockSequenceStore struct {
	mock.Mock
}

func (m *MockSequenceStore) SetIndex(ctx context.Context, campaignID, timelineID int64, index int, version uint64) (bool, error) {
	args := m.Called(ctx, campaignID, timelineID, index, version)
	return args.Bool(0), args.Error(1)
}

func (m *MockSequenceStore) Remove(ctx context.Context, timelineID int64) error {
	args := m.Called(ctx, timelineID)
	return args.Error(0)
}

func (m *MockSequenceStore) ListByCampaign(ctx context.Context, campaignID int64) ([]model.SequenceEntry, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SequenceEntry), args.Error(1)
}

func (m *MockSequenceStore) CampaignIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockSequenceStore) Reindex(ctx context.Context, entries []model.SequenceEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

type MockTimelineStore struct {
	mock.Mock
}

func (m *MockTimelineStore) ListByCampaign(ctx context.Context, campaignID int64) ([]model.Timeline, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Timeline), args.Error(1)
}

func (m *MockTimelineStore) Delete(ctx context.Context, timelineID int64) error {
	args := m.Called(ctx, timelineID)
	return args.Error(0)
}
