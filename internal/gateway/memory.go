package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"signage-studio/internal/model"
)

type memBlock struct {
	block   model.Block
	version uint64
}

// Memory is an in-process gateway. It applies the same versioning rules as the
// content server and is used offline and in tests.
type Memory struct {
	mu          sync.Mutex
	blocks      map[int64]*memBlock
	timelines   map[int64]model.Timeline
	sequences   map[int64]model.SequenceEntry
	subscribers map[string]chan model.Notification
	stamper     *Stamper
}

func NewMemory() *Memory {
	return &Memory{
		blocks:      make(map[int64]*memBlock),
		timelines:   make(map[int64]model.Timeline),
		sequences:   make(map[int64]model.SequenceEntry),
		subscribers: make(map[string]chan model.Notification),
		stamper:     NewStamper(),
	}
}

// PutBlock stores or replaces a block.
func (m *Memory) PutBlock(b model.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.ID] = &memBlock{block: b}
}

// PutTimeline stores a timeline and its sequence entry.
func (m *Memory) PutTimeline(t model.Timeline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timelines[t.ID] = t
	m.sequences[t.ID] = model.SequenceEntry{
		CampaignID:    t.CampaignID,
		TimelineID:    t.ID,
		SequenceIndex: t.SequenceIndex,
	}
}

func (m *Memory) HasBlock(blockID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocks[blockID]
	return ok
}

func (m *Memory) BlockLength(_ context.Context, blockID int64) (model.Length, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[blockID]
	if !ok {
		return model.Length{}, fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}
	return b.block.Length, nil
}

func (m *Memory) SetBlockLength(ctx context.Context, blockID int64, length model.Length) error {
	if err := length.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[blockID]
	if !ok {
		return fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}

	version := m.versionLocked(ctx, LengthKey(blockID))
	if version <= b.version {
		slog.Debug("stale length write ignored", "block_id", blockID, "version", version, "stored", b.version)
		return nil
	}
	b.block.Length = length
	b.version = version
	return nil
}

func (m *Memory) RemoveBlockFromChannel(_ context.Context, blockID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[blockID]; !ok {
		return fmt.Errorf("block %d: %w", blockID, model.ErrBlockNotFound)
	}
	delete(m.blocks, blockID)
	return nil
}

// RemoveTimelineFromSequence is a no-op for timelines that are not sequenced.
func (m *Memory) RemoveTimelineFromSequence(_ context.Context, timelineID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sequences, timelineID)
	return nil
}

func (m *Memory) SetTimelineSequenceIndex(ctx context.Context, campaignID, timelineID int64, index int) error {
	if index < 0 {
		return fmt.Errorf("index %d: %w", index, model.ErrInvalidIndex)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.timelines[timelineID]; !ok {
		return fmt.Errorf("campaign %d timeline %d: %w", campaignID, timelineID, model.ErrTimelineNotFound)
	}

	version := m.versionLocked(ctx, SequenceKey(timelineID))
	entry, ok := m.sequences[timelineID]
	if ok && version <= entry.Version {
		slog.Debug("stale sequence write ignored", "timeline_id", timelineID, "version", version, "stored", entry.Version)
		return nil
	}
	m.sequences[timelineID] = model.SequenceEntry{
		CampaignID:    campaignID,
		TimelineID:    timelineID,
		SequenceIndex: index,
		Version:       version,
	}
	return nil
}

// Sequence returns the campaign's sequence entries ordered by index.
func (m *Memory) Sequence(campaignID int64) []model.SequenceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.SequenceEntry
	for _, e := range m.sequences {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.SequenceEntry) int {
		if a.SequenceIndex != b.SequenceIndex {
			return a.SequenceIndex - b.SequenceIndex
		}
		return int(a.TimelineID - b.TimelineID)
	})
	return out
}

func (m *Memory) Timelines(_ context.Context, campaignID int64) ([]model.Timeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Timeline
	for _, t := range m.timelines {
		if t.CampaignID != campaignID {
			continue
		}
		if e, ok := m.sequences[t.ID]; ok {
			t.SequenceIndex = e.SequenceIndex
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b model.Timeline) int {
		if a.SequenceIndex != b.SequenceIndex {
			return a.SequenceIndex - b.SequenceIndex
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

// DeleteTimeline removes a timeline the way another operator would on the
// server and notifies every subscriber.
func (m *Memory) DeleteTimeline(_ context.Context, timelineID int64) error {
	m.mu.Lock()
	if _, ok := m.timelines[timelineID]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("timeline %d: %w", timelineID, model.ErrTimelineNotFound)
	}
	delete(m.timelines, timelineID)
	delete(m.sequences, timelineID)
	m.mu.Unlock()

	m.publish(model.Notification{Type: model.NotificationTimelineDeleted, TimelineID: timelineID})
	return nil
}

func (m *Memory) Subscribe() (<-chan model.Notification, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan model.Notification, 64)
	m.subscribers[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if ch, ok := m.subscribers[id]; ok {
			close(ch)
			delete(m.subscribers, id)
		}
	}
	return ch, unsubscribe
}

func (m *Memory) publish(n model.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- n:
		default:
			slog.Warn("notification dropped for slow subscriber", "type", n.Type, "timeline_id", n.TimelineID)
		}
	}
}

func (m *Memory) versionLocked(ctx context.Context, key string) uint64 {
	if v := VersionFrom(ctx); v != 0 {
		return v
	}
	return m.stamper.Next(key)
}
