// Package sequencer keeps the playback order of a campaign's timelines.
//
// Timelines are shown as a left-to-right row of screen thumbnails. Operators
// reorder them by dragging; when a drag ends, every remaining timeline gets its
// zero-based position written back through the gateway. Timelines deleted on the
// server arrive as TIMELINE_DELETED events and are removed the same way.
package sequencer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"signage-studio/internal/broker"
	"signage-studio/internal/gateway"
	"signage-studio/internal/model"
	"signage-studio/internal/screen"
)

// CampaignView supplies the campaign being edited and its screen layout. The
// sequencer looks it up in the broker's service registry.
type CampaignView interface {
	SelectedCampaign() int64
	Orientation() string
	Resolution() string
}

type Sequencer struct {
	broker  *broker.Broker
	gateway gateway.Gateway
	factory *screen.Factory

	// container is the visual row, left to right.
	container   []*screen.Thumbnail
	idToElement map[int64]string

	selected     int64
	dragAttached bool
	dragging     bool

	ctx context.Context
	log *slog.Logger
}

func New(ctx context.Context, b *broker.Broker, gw gateway.Gateway, factory *screen.Factory) *Sequencer {
	if ctx == nil {
		ctx = context.Background()
	}
	if factory == nil {
		factory = screen.NewFactory(b)
	}

	s := &Sequencer{
		broker:      b,
		gateway:     gw,
		factory:     factory,
		idToElement: make(map[int64]string),
		selected:    model.NoTimeline,
		ctx:         ctx,
		log:         slog.With("component", "sequencer"),
	}

	b.SetService(broker.ServiceSequencerView, s)
	b.Listen(broker.TopicTimelineSelected, s, s.onTimelineSelected)
	b.Listen(broker.TopicTimelineDeleted, s, s.onTimelineDeletedEvent)
	return s
}

func (s *Sequencer) campaign() (CampaignView, error) {
	view, ok := s.broker.Service(broker.ServiceCampaignView).(CampaignView)
	if !ok {
		return nil, fmt.Errorf("%w: no campaign view registered", model.ErrCampaignNotFound)
	}
	return view, nil
}

// CreateThumbnail renders a timeline from its screen props and appends it to the
// row. It returns the timeline id found in the props.
func (s *Sequencer) CreateThumbnail(_ context.Context, props json.RawMessage) (int64, error) {
	id, err := screen.TimelineID(props)
	if err != nil {
		return 0, fmt.Errorf("create thumbnail: %w", err)
	}
	if _, exists := s.idToElement[id]; exists {
		return 0, fmt.Errorf("create thumbnail %d: %w", id, model.ErrTimelineExists)
	}

	view, err := s.campaign()
	if err != nil {
		return 0, fmt.Errorf("create thumbnail: %w", err)
	}

	thumb, err := s.factory.Create(screen.TemplateData{
		Orientation: view.Orientation(),
		Resolution:  view.Resolution(),
		ScreenProps: props,
		Scale:       screen.DefaultScale,
	}, screen.EntireSelectable)
	if err != nil {
		return 0, fmt.Errorf("create thumbnail %d: %w", id, err)
	}

	s.idToElement[id] = thumb.ElementID()
	thumb.Activate()
	s.container = append(s.container, thumb)

	s.log.Debug("timeline thumbnail created", "timeline_id", id, "element_id", thumb.ElementID())
	return id, nil
}

// AttachDrag makes the row sortable.
func (s *Sequencer) AttachDrag() {
	s.dragAttached = true
}

// DetachDrag makes the row static and abandons any drag in progress.
func (s *Sequencer) DetachDrag() {
	s.dragAttached = false
	s.dragging = false
}

func (s *Sequencer) DragAttached() bool { return s.dragAttached }

// Dragging reports whether a moved thumbnail has not been dropped yet.
func (s *Sequencer) Dragging() bool { return s.dragging }

// Move drags the timeline's thumbnail to toIndex, clamped to the row.
func (s *Sequencer) Move(timelineID int64, toIndex int) error {
	if !s.dragAttached {
		return model.ErrDragDetached
	}
	from := s.position(timelineID)
	if from < 0 {
		return fmt.Errorf("move %d: %w", timelineID, model.ErrTimelineNotFound)
	}

	toIndex = max(0, min(toIndex, len(s.container)-1))
	thumb := s.container[from]
	s.container = slices.Delete(s.container, from, from+1)
	s.container = slices.Insert(s.container, toIndex, thumb)
	s.dragging = true
	return nil
}

// Drop ends the drag and writes the new order. The row is re-armed for the next
// drag afterwards.
func (s *Sequencer) Drop(ctx context.Context) error {
	if !s.dragAttached {
		return model.ErrDragDetached
	}
	s.dragging = false
	s.DetachDrag()
	s.AttachDrag()
	return s.Resequence(ctx)
}

// Resequence writes every thumbnail's position as its sequence index. All writes
// are attempted; their errors are joined.
func (s *Sequencer) Resequence(ctx context.Context) error {
	if len(s.container) == 0 {
		return nil
	}

	view, err := s.campaign()
	if err != nil {
		return fmt.Errorf("resequence: %w", err)
	}
	campaignID := view.SelectedCampaign()

	var errs []error
	for index, thumb := range s.container {
		timelineID, err := embeddedTimelineID(thumb)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.gateway.SetTimelineSequenceIndex(ctx, campaignID, timelineID, index); err != nil {
			errs = append(errs, fmt.Errorf("timeline %d: %w", timelineID, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Error("resequence incomplete", "campaign_id", campaignID, "failed", len(errs), "error", err)
		return err
	}
	s.log.Debug("timelines resequenced", "campaign_id", campaignID, "count", len(s.container))
	return nil
}

func embeddedTimelineID(thumb *screen.Thumbnail) (int64, error) {
	attr, ok := thumb.Attr(screen.AttrTimelineID)
	if !ok {
		return 0, fmt.Errorf("element %s: %w", thumb.ElementID(), model.ErrTimelineIDMissing)
	}
	id, err := strconv.ParseInt(attr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("element %s: %w", thumb.ElementID(), err)
	}
	return id, nil
}

func (s *Sequencer) onTimelineDeletedEvent(e broker.Event) {
	id, ok := e.Int64()
	if !ok {
		s.log.Warn("timeline deleted event without id", "data", e.Data())
		return
	}
	if err := s.OnTimelineDeleted(s.ctx, id); err != nil {
		s.log.Error("failed to remove deleted timeline", "timeline_id", id, "error", err)
	}
}

// OnTimelineDeleted drops a timeline deleted elsewhere and closes the gap it
// leaves in the sequence.
func (s *Sequencer) OnTimelineDeleted(ctx context.Context, timelineID int64) error {
	return s.remove(ctx, timelineID)
}

// RemoveTimeline removes a timeline at the operator's request.
func (s *Sequencer) RemoveTimeline(ctx context.Context, timelineID int64) error {
	return s.remove(ctx, timelineID)
}

func (s *Sequencer) remove(ctx context.Context, timelineID int64) error {
	if pos := s.position(timelineID); pos >= 0 {
		s.container[pos].Dispose()
		s.container = slices.Delete(s.container, pos, pos+1)
	} else {
		s.log.Debug("removing timeline without thumbnail", "timeline_id", timelineID)
	}
	delete(s.idToElement, timelineID)

	var errs []error
	if err := s.gateway.RemoveTimelineFromSequence(ctx, timelineID); err != nil {
		errs = append(errs, fmt.Errorf("remove timeline %d from sequence: %w", timelineID, err))
	}
	if err := s.Resequence(ctx); err != nil {
		errs = append(errs, err)
	}

	if s.selected == timelineID {
		s.broker.Fire(broker.TopicTimelineSelected, s, model.NoTimeline)
	}
	return errors.Join(errs...)
}

// SelectTimeline clicks the thumbnail of timelineID. It returns timelineID, or
// model.NoTimeline when no thumbnail carries it.
func (s *Sequencer) SelectTimeline(timelineID int64) int64 {
	pos := s.position(timelineID)
	if pos < 0 {
		return model.NoTimeline
	}
	s.container[pos].Click()
	return timelineID
}

func (s *Sequencer) onTimelineSelected(e broker.Event) {
	id, ok := e.Int64()
	if !ok {
		id = model.NoTimeline
	}
	s.selected = id
}

// Selected returns the selected timeline id or model.NoTimeline.
func (s *Sequencer) Selected() int64 { return s.selected }

// Order returns the timeline ids in visual order.
func (s *Sequencer) Order() []int64 {
	out := make([]int64, len(s.container))
	for i, thumb := range s.container {
		out[i] = thumb.TimelineID()
	}
	return out
}

func (s *Sequencer) Len() int { return len(s.container) }

// ElementID returns the element id of the timeline's thumbnail.
func (s *Sequencer) ElementID(timelineID int64) (string, bool) {
	id, ok := s.idToElement[timelineID]
	return id, ok
}

// Thumbnail returns the thumbnail of timelineID, or nil.
func (s *Sequencer) Thumbnail(timelineID int64) *screen.Thumbnail {
	if pos := s.position(timelineID); pos >= 0 {
		return s.container[pos]
	}
	return nil
}

// Close disposes every thumbnail and unsubscribes the sequencer.
func (s *Sequencer) Close() {
	for _, thumb := range s.container {
		thumb.Dispose()
	}
	s.container = nil
	clear(s.idToElement)
	s.broker.StopListeningAll(s)
}

func (s *Sequencer) position(timelineID int64) int {
	return slices.IndexFunc(s.container, func(t *screen.Thumbnail) bool {
		return t.TimelineID() == timelineID
	})
}
