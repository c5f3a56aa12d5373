// Package screen builds screen layout thumbnails for timelines.
package screen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"signage-studio/internal/broker"
)

type Mode int

const (
	// EntireSelectable thumbnails are clicked as a whole.
	EntireSelectable Mode = iota + 1
	// DivisionSelectable thumbnails let the operator pick a single division.
	DivisionSelectable
)

// Orientations.
const (
	Horizontal = "HORIZONTAL"
	Vertical   = "VERTICAL"
)

// DefaultScale shrinks a screen resolution down to sequencer thumbnail size.
const DefaultScale = "14"

type TemplateData struct {
	Orientation string
	Resolution  string
	ScreenProps json.RawMessage
	Scale       string
}

type Factory struct {
	broker *broker.Broker
}

func NewFactory(b *broker.Broker) *Factory {
	return &Factory{broker: b}
}

// Create builds a thumbnail. The thumbnail is inert until Activate.
func (f *Factory) Create(data TemplateData, mode Mode) (*Thumbnail, error) {
	timelineID, err := TimelineID(data.ScreenProps)
	if err != nil {
		return nil, err
	}

	width, height, err := scaledSize(data.Resolution, data.Orientation, data.Scale)
	if err != nil {
		return nil, err
	}

	elementID := "screen-" + uuid.NewString()
	divisions := parseDivisions(data.ScreenProps, elementID)
	props, err := annotate(data.ScreenProps, divisions)
	if err != nil {
		return nil, err
	}

	return &Thumbnail{
		elementID:  elementID,
		timelineID: timelineID,
		mode:       mode,
		width:      width,
		height:     height,
		attrs:      map[string]string{AttrTimelineID: strconv.FormatInt(timelineID, 10)},
		divisions:  divisions,
		props:      props,
		broker:     f.broker,
	}, nil
}

// scaledSize parses "WxH", swaps it for vertical screens and divides by scale.
func scaledSize(resolution, orientation, scale string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(resolution), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q", resolution)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution %q: %w", resolution, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution %q: %w", resolution, err)
	}

	if scale == "" {
		scale = DefaultScale
	}
	factor, err := strconv.Atoi(scale)
	if err != nil || factor <= 0 {
		return 0, 0, fmt.Errorf("invalid scale %q", scale)
	}

	if strings.EqualFold(orientation, Vertical) {
		width, height = height, width
	}
	return width / factor, height / factor, nil
}
