package screen

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"signage-studio/internal/model"
)

// AttrTimelineID is the data attribute holding a thumbnail's campaign timeline id.
const AttrTimelineID = "campaign_timeline_id"

// Division is one screen division of a timeline's layout.
type Division struct {
	Key        string `json:"key"`
	ElementID  string `json:"element_id"`
	TimelineID int64  `json:"campaign_timeline_id,omitempty"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	W          int    `json:"w"`
	H          int    `json:"h"`
}

// TimelineID returns the campaign_timeline_id of the first division that has
// one. Division keys are not known in advance, so groups are walked in document
// order.
func TimelineID(props []byte) (int64, error) {
	if !gjson.ValidBytes(props) {
		return 0, fmt.Errorf("%w: screen props are not valid json", model.ErrInvalidInput)
	}
	root := gjson.ParseBytes(props)
	if !root.IsObject() {
		return 0, fmt.Errorf("%w: screen props must be an object", model.ErrInvalidInput)
	}

	var (
		id    int64
		found bool
	)
	root.ForEach(func(_, group gjson.Result) bool {
		if !group.IsObject() {
			return true
		}
		v := group.Get(AttrTimelineID)
		if !v.Exists() {
			return true
		}
		id, found = v.Int(), true
		return false
	})

	if !found {
		return 0, model.ErrTimelineIDMissing
	}
	return id, nil
}

func parseDivisions(props []byte, elementID string) []Division {
	var divisions []Division
	gjson.ParseBytes(props).ForEach(func(key, group gjson.Result) bool {
		if !group.IsObject() {
			return true
		}
		divisions = append(divisions, Division{
			Key:        key.String(),
			ElementID:  fmt.Sprintf("%s-%d", elementID, len(divisions)),
			TimelineID: group.Get(AttrTimelineID).Int(),
			X:          int(group.Get("x").Int()),
			Y:          int(group.Get("y").Int()),
			W:          int(group.Get("w").Int()),
			H:          int(group.Get("h").Int()),
		})
		return true
	})
	return divisions
}

// annotate stamps each division's element id into the props document.
func annotate(props []byte, divisions []Division) ([]byte, error) {
	out := props
	for _, d := range divisions {
		var err error
		out, err = sjson.SetBytes(out, escapePath(d.Key)+".element_id", d.ElementID)
		if err != nil {
			return nil, fmt.Errorf("annotate division %q: %w", d.Key, err)
		}
	}
	return out, nil
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
