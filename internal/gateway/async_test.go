package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"signage-studio/internal/model"
)

func TestAsync_StampsWritesInIssueOrder(t *testing.T) {
	mem := NewMemory()
	mem.PutBlock(model.Block{ID: 7})
	a := NewAsync(mem, NewStamper())

	for minutes := 0; minutes <= 45; minutes++ {
		require.NoError(t, a.SetBlockLength(context.Background(), 7, model.Length{Minutes: minutes}))
	}
	a.Wait()

	got, err := mem.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 45, got.Minutes)
}

func TestAsync_CarriesVersionAndSurvivesCancel(t *testing.T) {
	gw := new(MockGateway)
	gw.On("SetTimelineSequenceIndex", mock.MatchedBy(func(ctx context.Context) bool {
		return VersionFrom(ctx) != 0 && ctx.Err() == nil
	}), int64(1), int64(10), 2).Return(nil)

	a := NewAsync(gw, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.SetTimelineSequenceIndex(ctx, 1, 10, 2))
	a.Wait()

	gw.AssertExpectations(t)
}

func TestAsync_ReportsErrors(t *testing.T) {
	gw := new(MockGateway)
	failure := errors.New("server down")
	gw.On("RemoveBlockFromChannel", mock.Anything, int64(3)).Return(failure)

	a := NewAsync(gw, nil)
	var mu sync.Mutex
	var ops []string
	a.OnError(func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		ops = append(ops, op)
		assert.ErrorIs(t, err, failure)
	})

	assert.NoError(t, a.RemoveBlockFromChannel(context.Background(), 3))
	a.Wait()

	assert.Equal(t, []string{"remove block"}, ops)
}

func TestAsync_ValidatesBeforeSending(t *testing.T) {
	gw := new(MockGateway)
	a := NewAsync(gw, nil)

	assert.ErrorIs(t, a.SetBlockLength(context.Background(), 1, model.Length{Hours: 24}), model.ErrInvalidLength)
	assert.ErrorIs(t, a.SetTimelineSequenceIndex(context.Background(), 1, 1, -1), model.ErrInvalidIndex)
	a.Wait()

	gw.AssertNotCalled(t, "SetBlockLength", mock.Anything, mock.Anything, mock.Anything)
}

func TestAsync_ReadsPassThrough(t *testing.T) {
	gw := new(MockGateway)
	gw.On("BlockLength", mock.Anything, int64(7)).Return(model.Length{Hours: 1}, nil)

	got, err := NewAsync(gw, nil).BlockLength(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 1, got.Hours)
}

// gatedMemory parks every write until its gate channel is closed.
type gatedMemory struct {
	*Memory
	gate    chan struct{}
	started chan string
}

func newGatedMemory() *gatedMemory {
	return &gatedMemory{Memory: NewMemory(), gate: make(chan struct{}), started: make(chan string, 16)}
}

func (g *gatedMemory) wait(op string) {
	g.started <- op
	<-g.gate
}

func (g *gatedMemory) SetBlockLength(ctx context.Context, blockID int64, length model.Length) error {
	g.wait("length")
	return g.Memory.SetBlockLength(ctx, blockID, length)
}

func (g *gatedMemory) SetTimelineSequenceIndex(ctx context.Context, campaignID, timelineID int64, index int) error {
	g.wait("index")
	return g.Memory.SetTimelineSequenceIndex(ctx, campaignID, timelineID, index)
}

func (g *gatedMemory) RemoveTimelineFromSequence(ctx context.Context, timelineID int64) error {
	g.wait("remove")
	return g.Memory.RemoveTimelineFromSequence(ctx, timelineID)
}

func TestAsync_SameKeyWritesKeepIssueOrder(t *testing.T) {
	gm := newGatedMemory()
	gm.PutTimeline(model.Timeline{ID: 2, CampaignID: 1, SequenceIndex: 0})
	a := NewAsync(gm, nil)

	require.NoError(t, a.SetTimelineSequenceIndex(context.Background(), 1, 2, 1))
	require.NoError(t, a.RemoveTimelineFromSequence(context.Background(), 2))

	select {
	case op := <-gm.started:
		assert.Equal(t, "index", op)
	case <-time.After(2 * time.Second):
		t.Fatal("no write was sent")
	}
	assert.Empty(t, gm.started, "removal was sent before the index write finished")

	close(gm.gate)
	a.Wait()

	assert.Empty(t, gm.Sequence(1))
}

func TestAsync_ReadsPendingLength(t *testing.T) {
	gm := newGatedMemory()
	gm.PutBlock(model.Block{ID: 7, Length: model.Length{Hours: 2, Minutes: 30}})
	a := NewAsync(gm, nil)

	require.NoError(t, a.SetBlockLength(context.Background(), 7, model.Length{Hours: 2, Minutes: 45}))

	got, err := a.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Hours: 2, Minutes: 45}, got)

	require.NoError(t, a.SetBlockLength(context.Background(), 7, model.Length{Hours: 2, Minutes: 45, Seconds: 10}))
	close(gm.gate)
	a.Wait()

	stored, err := gm.Memory.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Hours: 2, Minutes: 45, Seconds: 10}, stored)

	// Nothing in flight: reads go back to the wrapped gateway.
	gm.PutBlock(model.Block{ID: 7, Length: model.Length{Seconds: 5}})
	got, err = a.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Seconds: 5}, got)
}

func TestAsync_FailedLengthWriteStopsShadowing(t *testing.T) {
	gw := new(MockGateway)
	gw.On("SetBlockLength", mock.Anything, int64(4), model.Length{Minutes: 1}).Return(errors.New("server down"))
	gw.On("BlockLength", mock.Anything, int64(4)).Return(model.Length{Seconds: 30}, nil)
	a := NewAsync(gw, nil)

	require.NoError(t, a.SetBlockLength(context.Background(), 4, model.Length{Minutes: 1}))
	a.Wait()

	got, err := a.BlockLength(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Seconds: 30}, got)
}
