package gateway

import (
	"context"

	"github.com/stretchr/testify/mock"

	"signage-studio/internal/model"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) BlockLength(ctx context.Context, blockID int64) (model.Length, error) {
	args := m.Called(ctx, blockID)
	return args.Get(0).(model.Length), args.Error(1)
}

func (m *MockGateway) SetBlockLength(ctx context.Context, blockID int64, length model.Length) error {
	args := m.Called(ctx, blockID, length)
	return args.Error(0)
}

func (m *MockGateway) RemoveBlockFromChannel(ctx context.Context, blockID int64) error {
	args := m.Called(ctx, blockID)
	return args.Error(0)
}

func (m *MockGateway) RemoveTimelineFromSequence(ctx context.Context, timelineID int64) error {
	args := m.Called(ctx, timelineID)
	return args.Error(0)
}

func (m *MockGateway) SetTimelineSequenceIndex(ctx context.Context, campaignID, timelineID int64, index int) error {
	args := m.Called(ctx, campaignID, timelineID, index)
	return args.Error(0)
}

func (m *MockGateway) Subscribe() (<-chan model.Notification, func()) {
	args := m.Called()
	if args.Get(0) == nil {
		ch := make(chan model.Notification)
		close(ch)
		return ch, func() {}
	}
	return args.Get(0).(<-chan model.Notification), args.Get(1).(func())
}
