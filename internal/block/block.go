// Package block implements the blocks an operator places on channel timelines
// and inside scenes, and the single-selection protocol they share.
//
// Selection is broadcast: whoever selects a block fires BLOCK_ON_CHANNEL_SELECTED
// with its id and every channel block decides for itself whether it is the one.
// The selected block loads its length into the shared knobs of the properties
// panel and pushes knob releases back through the gateway.
package block

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"signage-studio/internal/broker"
	"signage-studio/internal/gateway"
	"signage-studio/internal/model"
	"signage-studio/internal/panel"
)

type Placement int

const (
	PlacementChannel Placement = iota + 1
	PlacementScene
)

func (p Placement) String() string {
	switch p {
	case PlacementChannel:
		return "channel"
	case PlacementScene:
		return "scene"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// Deps are the collaborators a block needs. Panel may be left nil, in which case
// the properties view registered with the broker is used.
type Deps struct {
	Context context.Context
	Broker  *broker.Broker
	Panel   *panel.Panel
	Gateway gateway.Gateway
}

type Block struct {
	id          int64
	placement   Placement
	kind        Kind
	name        string
	description string
	selected    bool

	ctx     context.Context
	broker  *broker.Broker
	panel   *panel.Panel
	gateway gateway.Gateway

	finalize sync.Once
	deleted  bool

	log *slog.Logger
}

// New builds a block. Channel blocks join the selection protocol immediately;
// scene blocks stay passive.
func New(deps Deps, placement Placement, id int64, kind Kind, name string) *Block {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	b := &Block{
		id:          id,
		placement:   placement,
		kind:        kind,
		name:        name,
		description: kind.Description,
		ctx:         ctx,
		broker:      deps.Broker,
		panel:       deps.Panel,
		gateway:     deps.Gateway,
		log:         slog.With("component", "block", "block_id", id, "block_type", kind.Type),
	}
	if b.name == "" {
		b.name = kind.Name
	}

	if placement != PlacementChannel {
		return b
	}

	if b.panel == nil {
		if p, ok := b.broker.Service(broker.ServicePropertiesView).(*panel.Panel); ok {
			b.panel = p
		}
	}

	b.broker.Listen(broker.TopicBlockSelected, b, b.onSelected)
	b.broker.Listen(broker.TopicBlockLengthChanging, b, b.onLengthChanging)
	if b.panel != nil {
		b.panel.InitLengthKnobs()
	}
	if kind.Attach != nil {
		kind.Attach(b)
	}
	return b
}

func (b *Block) ID() int64 { return b.id }

func (b *Block) Placement() Placement { return b.placement }

func (b *Block) Kind() Kind { return b.kind }

func (b *Block) Name() string { return b.name }

func (b *Block) Selected() bool { return b.selected }

func (b *Block) Panel() *panel.Panel { return b.panel }

func (b *Block) Deleted() bool { return b.deleted }

// Data returns the block's public description.
func (b *Block) Data() model.BlockData {
	return model.BlockData{
		BlockID:          b.id,
		BlockType:        b.kind.Type,
		BlockName:        b.name,
		BlockDescription: b.description,
		BlockIcon:        b.kind.Icon,
	}
}

// Listen subscribes handler with the block as owner, so Delete releases it.
func (b *Block) Listen(topic broker.Topic, handler broker.Handler) {
	b.broker.Listen(topic, b, handler)
}

// Select fires BLOCK_ON_CHANNEL_SELECTED for this block.
func (b *Block) Select() {
	b.broker.Fire(broker.TopicBlockSelected, b, b.id)
}

func (b *Block) onSelected(e broker.Event) {
	id, ok := e.Int64()
	if !ok || id != b.id {
		b.selected = false
		return
	}

	b.selected = true
	if b.panel != nil {
		b.panel.ViewPanel(panel.BlockProperties)
		b.panel.SetTitle(b.name)
		b.loadLength()
	}

	if b.kind.LoadCommonProperties != nil {
		b.kind.LoadCommonProperties(b)
	}
}

// loadLength always asks the gateway; lengths may change on the server.
func (b *Block) loadLength() {
	length, err := b.gateway.BlockLength(b.ctx, b.id)
	if err != nil {
		b.log.Error("failed to load block length", "error", err)
		return
	}
	b.panel.LoadLength(length)
}

func (b *Block) onLengthChanging(e broker.Event) {
	if !b.selected || b.panel == nil {
		return
	}

	length := b.panel.Length()
	if value, ok := e.Int64(); ok {
		switch e.Caller() {
		case panel.KnobHours:
			length.Hours = int(value)
		case panel.KnobMinutes:
			length.Minutes = int(value)
		case panel.KnobSeconds:
			length.Seconds = int(value)
		}
	}

	if err := b.gateway.SetBlockLength(b.ctx, b.id, length); err != nil {
		b.log.Error("failed to set block length", "length", length.String(), "error", err)
	}
}

// Delete runs the kind's OnDelete hook and then releases the block. The release
// step runs exactly once, whatever the hook does.
func (b *Block) Delete(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Join(err, fmt.Errorf("delete hook panic: %v", recovered))
		}
		err = errors.Join(err, b.release(ctx))
	}()

	if b.kind.OnDelete != nil {
		if hookErr := b.kind.OnDelete(ctx, b); hookErr != nil {
			err = fmt.Errorf("%s delete hook: %w", b.kind.Type, hookErr)
		}
	}
	return err
}

func (b *Block) release(ctx context.Context) error {
	var err error
	b.finalize.Do(func() {
		b.deleted = true
		b.selected = false
		if b.placement == PlacementChannel {
			if removeErr := b.gateway.RemoveBlockFromChannel(ctx, b.id); removeErr != nil {
				err = fmt.Errorf("remove block %d from channel: %w", b.id, removeErr)
			}
		}
		b.broker.StopListeningAll(b)
	})
	return err
}
