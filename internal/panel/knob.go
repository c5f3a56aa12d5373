package panel

import (
	"signage-studio/internal/broker"
	"signage-studio/internal/model"
)

// Length knob ids. They double as the event source of BLOCK_LENGTH_CHANGING.
const (
	KnobHours   = "blockLengthHours"
	KnobMinutes = "blockLengthMinutes"
	KnobSeconds = "blockLengthSeconds"
)

// Knob is a bounded integer dial.
type Knob struct {
	id       string
	min, max int
	value    int
	dragging bool

	broker *broker.Broker
}

func (k *Knob) ID() string { return k.id }

func (k *Knob) Value() int { return k.value }

func (k *Knob) Bounds() (min, max int) { return k.min, k.max }

func (k *Knob) Dragging() bool { return k.dragging }

// Set stores v without notifying anyone.
func (k *Knob) Set(v int) {
	k.value = k.clamp(v)
}

// Drag moves the dial while the operator holds it. Nothing is fired until Release.
func (k *Knob) Drag(v int) {
	k.dragging = true
	k.value = k.clamp(v)
}

// Release commits v and fires BLOCK_LENGTH_CHANGING with the knob id as source.
func (k *Knob) Release(v int) {
	k.dragging = false
	k.value = k.clamp(v)
	k.broker.Fire(broker.TopicBlockLengthChanging, k.id, k.value)
}

func (k *Knob) clamp(v int) int {
	if v < k.min {
		return k.min
	}
	if v > k.max {
		return k.max
	}
	return v
}

// InitLengthKnobs creates the three length knobs the first time the block
// properties panel is initialised.
func (p *Panel) InitLengthKnobs() {
	if !p.InitPanel(BlockProperties) {
		return
	}
	p.AddKnob(KnobHours, 0, model.MaxHours)
	p.AddKnob(KnobMinutes, 0, model.MaxMinutes)
	p.AddKnob(KnobSeconds, 0, model.MaxSeconds)
}

// Length reads the three length knobs.
func (p *Panel) Length() model.Length {
	return model.Length{
		Hours:   p.value(KnobHours),
		Minutes: p.value(KnobMinutes),
		Seconds: p.value(KnobSeconds),
	}
}

// LoadLength writes l into the length knobs without firing.
func (p *Panel) LoadLength(l model.Length) {
	p.set(KnobHours, l.Hours)
	p.set(KnobMinutes, l.Minutes)
	p.set(KnobSeconds, l.Seconds)
}

func (p *Panel) value(id string) int {
	if k := p.knobs[id]; k != nil {
		return k.value
	}
	return 0
}

func (p *Panel) set(id string, v int) {
	if k := p.knobs[id]; k != nil {
		k.Set(v)
	}
}
