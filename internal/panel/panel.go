// Package panel holds the property panel shown next to the timeline and the
// rotary knobs it hosts.
package panel

import (
	"log/slog"

	"signage-studio/internal/broker"
)

// Panel ids.
const (
	BlockProperties = "blockProperties"
	Campaign        = "campaignProperties"
)

// Panel is the properties view. It tracks which sub panel is visible, the title
// shown above it and the knobs created so far.
type Panel struct {
	broker *broker.Broker

	initialised map[string]bool
	current     string
	section     string
	title       string
	knobs       map[string]*Knob

	log *slog.Logger
}

func New(b *broker.Broker) *Panel {
	return &Panel{
		broker:      b,
		initialised: make(map[string]bool),
		knobs:       make(map[string]*Knob),
		log:         slog.With("component", "panel"),
	}
}

// InitPanel reports whether id is being initialised for the first time. Callers
// create the panel's widgets only when it returns true.
func (p *Panel) InitPanel(id string) bool {
	if p.initialised[id] {
		return false
	}
	p.initialised[id] = true
	return true
}

// ViewPanel makes id the visible sub panel.
func (p *Panel) ViewPanel(id string) {
	if p.current != id {
		p.log.Debug("view panel", "panel", id)
	}
	p.current = id
}

func (p *Panel) Current() string {
	return p.current
}

// ShowSection shows a kind specific section under the current panel.
func (p *Panel) ShowSection(section string) {
	p.section = section
}

func (p *Panel) Section() string {
	return p.section
}

func (p *Panel) SetTitle(title string) {
	p.title = title
}

func (p *Panel) Title() string {
	return p.title
}

// AddKnob creates a knob bound to this panel. Adding an id twice returns the
// existing knob.
func (p *Panel) AddKnob(id string, min, max int) *Knob {
	if k, ok := p.knobs[id]; ok {
		return k
	}
	k := &Knob{id: id, min: min, max: max, value: min, broker: p.broker}
	p.knobs[id] = k
	return k
}

// Knob returns the knob with id, or nil.
func (p *Panel) Knob(id string) *Knob {
	return p.knobs[id]
}
