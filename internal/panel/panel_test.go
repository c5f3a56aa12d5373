package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-studio/internal/broker"
	"signage-studio/internal/model"
)

type listener struct{}

func TestPanel_InitPanelOnlyOnce(t *testing.T) {
	p := New(broker.New())

	assert.True(t, p.InitPanel(BlockProperties))
	assert.False(t, p.InitPanel(BlockProperties))
	assert.True(t, p.InitPanel(Campaign))
}

func TestPanel_InitLengthKnobs(t *testing.T) {
	p := New(broker.New())
	p.InitLengthKnobs()
	hours := p.Knob(KnobHours)
	require.NotNil(t, hours)

	p.InitLengthKnobs()
	assert.Same(t, hours, p.Knob(KnobHours))

	min, max := p.Knob(KnobMinutes).Bounds()
	assert.Equal(t, 0, min)
	assert.Equal(t, 59, max)
}

func TestPanel_LoadLengthDoesNotFire(t *testing.T) {
	b := broker.New()
	p := New(b)
	p.InitLengthKnobs()
	fired := 0
	b.Listen(broker.TopicBlockLengthChanging, &listener{}, func(broker.Event) { fired++ })

	p.LoadLength(model.Length{Hours: 2, Minutes: 30, Seconds: 5})

	assert.Zero(t, fired)
	assert.Equal(t, model.Length{Hours: 2, Minutes: 30, Seconds: 5}, p.Length())
}

func TestKnob_Release(t *testing.T) {
	b := broker.New()
	p := New(b)
	p.InitLengthKnobs()

	var events []broker.Event
	b.Listen(broker.TopicBlockLengthChanging, &listener{}, func(e broker.Event) { events = append(events, e) })

	k := p.Knob(KnobMinutes)
	k.Drag(40)
	k.Drag(44)
	assert.True(t, k.Dragging())
	assert.Empty(t, events)

	k.Release(45)

	require.Len(t, events, 1)
	assert.Equal(t, KnobMinutes, events[0].Caller())
	assert.Equal(t, 45, events[0].Data())
	assert.Equal(t, 45, k.Value())
	assert.False(t, k.Dragging())
}

func TestKnob_Clamps(t *testing.T) {
	b := broker.New()
	p := New(b)
	p.InitLengthKnobs()

	var data []any
	b.Listen(broker.TopicBlockLengthChanging, &listener{}, func(e broker.Event) { data = append(data, e.Data()) })

	p.Knob(KnobHours).Release(30)
	p.Knob(KnobSeconds).Release(-4)
	p.Knob(KnobMinutes).Set(99)

	assert.Equal(t, []any{23, 0}, data)
	assert.Equal(t, 59, p.Knob(KnobMinutes).Value())
}

func TestPanel_ViewAndTitle(t *testing.T) {
	p := New(broker.New())

	p.ViewPanel(BlockProperties)
	p.SetTitle("Lobby RSS")

	assert.Equal(t, BlockProperties, p.Current())
	assert.Equal(t, "Lobby RSS", p.Title())
	assert.Nil(t, p.Knob("unknown"))
}
