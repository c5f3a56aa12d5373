package console

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-studio/internal/config"
	"signage-studio/internal/gateway"
	"signage-studio/internal/model"
)

const campaignID int64 = 1

func testConfig() *config.Console {
	return &config.Console{
		CampaignID:  campaignID,
		Orientation: "HORIZONTAL",
		Resolution:  "1920x1080",
		Offline:     true,
		DragDelay:   time.Hour,
	}
}

func seededMemory(timelineIDs ...int64) *gateway.Memory {
	mem := gateway.NewMemory()
	for i, id := range timelineIDs {
		mem.PutTimeline(model.Timeline{
			ID:            id,
			CampaignID:    campaignID,
			SequenceIndex: i,
			ScreenProps:   []byte(fmt.Sprintf(`{"sd%d":{"campaign_timeline_id":%d}}`, id, id)),
		})
	}
	return mem
}

func startStudio(t *testing.T, mem *gateway.Memory) *Studio {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, testConfig(), mem)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("studio did not stop")
		}
	})

	require.NoError(t, s.Do(ctx, func() error { return s.Bootstrap(ctx) }))
	return s
}

func exec(t *testing.T, s *Studio, line string) string {
	t.Helper()
	var out string
	err := s.Do(context.Background(), func() error {
		var err error
		out, err = s.Exec(context.Background(), line)
		return err
	})
	require.NoError(t, err, line)
	return out
}

func sequenceIDs(entries []model.SequenceEntry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.TimelineID
	}
	return ids
}

func TestStudio_BootstrapFollowsServerOrder(t *testing.T) {
	mem := seededMemory(10, 11, 12)
	require.NoError(t, mem.SetTimelineSequenceIndex(context.Background(), campaignID, 12, 0))
	require.NoError(t, mem.SetTimelineSequenceIndex(context.Background(), campaignID, 10, 1))
	require.NoError(t, mem.SetTimelineSequenceIndex(context.Background(), campaignID, 11, 2))

	s := startStudio(t, mem)

	var order []int64
	require.NoError(t, s.Do(context.Background(), func() error {
		order = s.Sequencer().Order()
		return nil
	}))
	assert.Equal(t, []int64{12, 10, 11}, order)
}

func TestStudio_DragReorderPersists(t *testing.T) {
	mem := seededMemory(1, 2, 3)
	s := startStudio(t, mem)

	exec(t, s, "attach")
	exec(t, s, "move 3 0")
	out := exec(t, s, "drop")
	s.Flush()

	assert.Contains(t, out, "0: timeline 3")
	assert.Equal(t, []int64{3, 1, 2}, sequenceIDs(mem.Sequence(campaignID)))
}

func TestStudio_ServerDeletionReachesSequencer(t *testing.T) {
	mem := seededMemory(1, 2, 3)
	s := startStudio(t, mem)
	assert.Equal(t, "2", exec(t, s, "select-timeline 2"))

	require.NoError(t, mem.DeleteTimeline(context.Background(), 2))

	assert.Eventually(t, func() bool {
		var n int
		_ = s.Do(context.Background(), func() error {
			n = s.Sequencer().Len()
			return nil
		})
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)

	s.Flush()
	seq := mem.Sequence(campaignID)
	assert.Equal(t, []int64{1, 3}, sequenceIDs(seq))
	assert.Equal(t, 1, seq[1].SequenceIndex)
	assert.Equal(t, "-1", exec(t, s, "select-timeline 2"))
	assert.NotContains(t, exec(t, s, "timelines"), "*")
}

func TestStudio_BlockLengthEdit(t *testing.T) {
	mem := seededMemory()
	mem.PutBlock(model.Block{ID: 7, Length: model.Length{Hours: 2, Minutes: 30}})
	mem.PutBlock(model.Block{ID: 8, Length: model.Length{Seconds: 10}})
	s := startStudio(t, mem)

	exec(t, s, "block 7 RSS Lobby news")
	exec(t, s, "block 8 QR")
	assert.Equal(t, "Lobby news 02:30:00", exec(t, s, "select-block 7"))

	assert.Equal(t, "02:45:00", exec(t, s, "knob minutes 45"))
	s.Flush()

	got, err := mem.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Hours: 2, Minutes: 45}, got)

	untouched, err := mem.BlockLength(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Seconds: 10}, untouched)
}

// slowLengths parks the first length write until release is closed.
type slowLengths struct {
	*gateway.Memory
	release chan struct{}
	once    sync.Once
}

func (g *slowLengths) SetBlockLength(ctx context.Context, blockID int64, length model.Length) error {
	g.once.Do(func() { <-g.release })
	return g.Memory.SetBlockLength(ctx, blockID, length)
}

func TestStudio_ReselectKeepsUnsentLengthEdit(t *testing.T) {
	mem := seededMemory()
	mem.PutBlock(model.Block{ID: 7, Length: model.Length{Hours: 2, Minutes: 30}})
	mem.PutBlock(model.Block{ID: 8})
	slow := &slowLengths{Memory: mem, release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, testConfig(), slow)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		select {
		case <-slow.release:
		default:
			close(slow.release)
		}
		cancel()
		<-done
	})

	exec(t, s, "block 7 RSS Lobby news")
	exec(t, s, "block 8 QR")
	exec(t, s, "select-block 7")
	assert.Equal(t, "02:45:00", exec(t, s, "knob minutes 45"))

	exec(t, s, "select-block 8")
	assert.Equal(t, "Lobby news 02:45:00", exec(t, s, "select-block 7"))
	assert.Equal(t, "02:45:10", exec(t, s, "knob seconds 10"))

	close(slow.release)
	s.Flush()

	got, err := mem.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Hours: 2, Minutes: 45, Seconds: 10}, got)
}

func TestStudio_DeleteBlock(t *testing.T) {
	mem := seededMemory()
	mem.PutBlock(model.Block{ID: 7})
	s := startStudio(t, mem)
	exec(t, s, "block 7 Video")

	exec(t, s, "delete-block 7")
	s.Flush()

	assert.False(t, mem.HasBlock(7))
	assert.Equal(t, "no blocks", exec(t, s, "blocks"))
}

func TestStudio_ExecErrors(t *testing.T) {
	s := startStudio(t, seededMemory(1))

	for _, line := range []string{"bogus", "move x 1", "block 1 Banner", "knob days 3", "select-block 99", "move 1 0"} {
		err := s.Do(context.Background(), func() error {
			_, err := s.Exec(context.Background(), line)
			return err
		})
		assert.Error(t, err, line)
	}
}

func TestStudio_REPL(t *testing.T) {
	s := startStudio(t, seededMemory(1, 2))
	in := strings.NewReader("timelines\nbogus\nquit\nstats\n")
	var out bytes.Buffer

	require.NoError(t, s.REPL(context.Background(), in, &out))

	assert.Contains(t, out.String(), "0: timeline 1")
	assert.Contains(t, out.String(), "error: ")
	assert.NotContains(t, out.String(), "fired=")
}
