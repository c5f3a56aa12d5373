package screen

import (
	"encoding/json"

	"signage-studio/internal/broker"
)

// Thumbnail is the scaled layout of one campaign timeline.
type Thumbnail struct {
	elementID  string
	timelineID int64
	mode       Mode
	width      int
	height     int
	attrs      map[string]string
	divisions  []Division
	props      json.RawMessage

	selected         bool
	selectedDivision string
	active           bool

	broker *broker.Broker
}

func (t *Thumbnail) ElementID() string { return t.elementID }

func (t *Thumbnail) TimelineID() int64 { return t.timelineID }

func (t *Thumbnail) Mode() Mode { return t.mode }

func (t *Thumbnail) Size() (width, height int) { return t.width, t.height }

// Attr returns a data attribute of the thumbnail element.
func (t *Thumbnail) Attr(name string) (string, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

func (t *Thumbnail) Divisions() []Division { return t.divisions }

// Props returns the screen props annotated with division element ids.
func (t *Thumbnail) Props() json.RawMessage { return t.props }

func (t *Thumbnail) Selected() bool { return t.selected }

func (t *Thumbnail) SelectedDivision() string { return t.selectedDivision }

// Activate wires the thumbnail to timeline selection so its frame follows
// whichever timeline is selected.
func (t *Thumbnail) Activate() {
	if t.active {
		return
	}
	t.active = true
	t.broker.Listen(broker.TopicTimelineSelected, t, func(e broker.Event) {
		id, _ := e.Int64()
		t.selected = id == t.timelineID
	})
}

// Click selects the thumbnail's timeline.
func (t *Thumbnail) Click() {
	t.broker.Fire(broker.TopicTimelineSelected, t, t.timelineID)
}

// ClickDivision picks a division in DivisionSelectable mode. It reports whether
// key names a division.
func (t *Thumbnail) ClickDivision(key string) bool {
	if t.mode != DivisionSelectable {
		return false
	}
	for _, d := range t.divisions {
		if d.Key == key {
			t.selectedDivision = key
			t.Click()
			return true
		}
	}
	return false
}

func (t *Thumbnail) Dispose() {
	t.active = false
	t.selected = false
	t.broker.StopListeningAll(t)
}
