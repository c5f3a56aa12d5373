// Package console wires the operator console together: one loop goroutine, one
// broker, the properties panel, the channel blocks and the sequencer, all talking
// to the content server through a gateway.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"signage-studio/internal/block"
	"signage-studio/internal/broker"
	"signage-studio/internal/config"
	"signage-studio/internal/gateway"
	"signage-studio/internal/loop"
	"signage-studio/internal/model"
	"signage-studio/internal/panel"
	"signage-studio/internal/screen"
	"signage-studio/internal/sequencer"
	"signage-studio/internal/util"
)

// Studio is the console's composition root. Apart from Run and Do, its methods
// must be called on the loop goroutine.
type Studio struct {
	cfg *config.Console

	loop      *loop.Loop
	broker    *broker.Broker
	panel     *panel.Panel
	remote    gateway.Gateway
	gateway   *gateway.Async
	sequencer *sequencer.Sequencer
	blocks    map[int64]*block.Block

	ctx context.Context
	log *slog.Logger
}

// New builds a studio on top of remote. Writes to remote are sent
// asynchronously.
func New(ctx context.Context, cfg *config.Console, remote gateway.Gateway) *Studio {
	b := broker.New(broker.WithLoopAffinity())
	p := panel.New(b)
	async := gateway.NewAsync(remote, gateway.NewStamper())

	s := &Studio{
		cfg:     cfg,
		loop:    loop.New(0),
		broker:  b,
		panel:   p,
		remote:  remote,
		gateway: async,
		blocks:  make(map[int64]*block.Block),
		ctx:     ctx,
		log:     slog.With("component", "studio"),
	}

	b.SetService(broker.ServicePropertiesView, p)
	b.SetService(broker.ServiceCampaignView, s)
	s.sequencer = sequencer.New(ctx, b, async, screen.NewFactory(b))
	return s
}

func (s *Studio) SelectedCampaign() int64 { return s.cfg.CampaignID }

func (s *Studio) Orientation() string { return s.cfg.Orientation }

func (s *Studio) Resolution() string { return s.cfg.Resolution }

func (s *Studio) Broker() *broker.Broker { return s.broker }

func (s *Studio) Panel() *panel.Panel { return s.panel }

func (s *Studio) Sequencer() *sequencer.Sequencer { return s.sequencer }

func (s *Studio) Loop() *loop.Loop { return s.loop }

// Run drives the loop and the notification pump until ctx is cancelled, then
// waits for outstanding writes.
func (s *Studio) Run(ctx context.Context) error {
	notifications, unsubscribe := s.remote.Subscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop.Run(ctx)
	})
	g.Go(func() error {
		defer unsubscribe()
		return s.pump(ctx, notifications)
	})

	cancelAttach := s.loop.After(s.cfg.DragDelay, func() {
		s.sequencer.AttachDrag()
		s.log.Info("drag and drop attached")
	})
	defer cancelAttach()

	err := g.Wait()
	s.gateway.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pump moves server notifications onto the loop and fires them there.
func (s *Studio) pump(ctx context.Context, notifications <-chan model.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				s.log.Warn("notification stream closed")
				<-ctx.Done()
				return ctx.Err()
			}
			if n.Type != model.NotificationTimelineDeleted {
				continue
			}
			id := n.TimelineID
			if err := s.loop.Post(func() {
				s.broker.Fire(broker.TopicTimelineDeleted, s, id)
			}); err != nil {
				return err
			}
		}
	}
}

// Do runs fn on the loop goroutine and waits for it.
func (s *Studio) Do(ctx context.Context, fn func() error) error {
	return s.loop.Do(ctx, fn)
}

// Bootstrap creates a thumbnail for every timeline of the campaign, in server
// sequence order.
func (s *Studio) Bootstrap(ctx context.Context) error {
	lister, ok := s.remote.(gateway.TimelineLister)
	if !ok {
		return nil
	}

	timelines, err := lister.Timelines(ctx, s.cfg.CampaignID)
	if err != nil {
		return fmt.Errorf("bootstrap campaign %d: %w", s.cfg.CampaignID, err)
	}

	var errs []error
	for _, t := range timelines {
		if _, err := s.sequencer.CreateThumbnail(ctx, t.ScreenProps); err != nil {
			errs = append(errs, fmt.Errorf("timeline %d: %w", t.ID, err))
		}
	}
	s.log.Info("campaign loaded", "campaign_id", s.cfg.CampaignID, "timelines", s.sequencer.Len())
	return errors.Join(errs...)
}

// AddBlock places a block of the given kind on the channel.
func (s *Studio) AddBlock(id int64, kindType, name string) (*block.Block, error) {
	kind, ok := block.Kinds()[kindType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown block kind %q", model.ErrInvalidInput, kindType)
	}
	if _, exists := s.blocks[id]; exists {
		return nil, fmt.Errorf("%w: block %d already placed", model.ErrInvalidInput, id)
	}
	if strings.TrimSpace(name) == "" {
		name = kind.Name
	}
	name, err := util.SanitizeName(name)
	if err != nil {
		return nil, err
	}

	blk := block.New(block.Deps{
		Context: s.ctx,
		Broker:  s.broker,
		Panel:   s.panel,
		Gateway: s.gateway,
	}, block.PlacementChannel, id, kind, name)
	s.blocks[id] = blk
	return blk, nil
}

func (s *Studio) Block(id int64) (*block.Block, bool) {
	blk, ok := s.blocks[id]
	return blk, ok
}

// Blocks returns the placed blocks ordered by id.
func (s *Studio) Blocks() []*block.Block {
	out := make([]*block.Block, 0, len(s.blocks))
	for _, blk := range s.blocks {
		out = append(out, blk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// DeleteBlock deletes a block and forgets it, even when the server call fails.
func (s *Studio) DeleteBlock(ctx context.Context, id int64) error {
	blk, ok := s.blocks[id]
	if !ok {
		return fmt.Errorf("block %d: %w", id, model.ErrBlockNotFound)
	}
	delete(s.blocks, id)
	return blk.Delete(ctx)
}

// Flush waits until every write issued so far has reached the gateway.
func (s *Studio) Flush() {
	s.gateway.Wait()
}

// Close releases every component's subscriptions. Server state is untouched.
func (s *Studio) Close() {
	for _, blk := range s.blocks {
		s.broker.StopListeningAll(blk)
	}
	clear(s.blocks)
	s.sequencer.Close()
	s.gateway.Wait()
}
