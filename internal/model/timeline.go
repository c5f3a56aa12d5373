package model

import "encoding/json"

// NoTimeline is returned by lookups that found no matching timeline.
const NoTimeline int64 = -1

type Campaign struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Timeline struct {
	ID            int64           `json:"id"`
	CampaignID    int64           `json:"campaign_id"`
	Name          string          `json:"name"`
	SequenceIndex int             `json:"sequence_index"`
	ScreenProps   json.RawMessage `json:"screen_props"`
}

type SequenceEntry struct {
	CampaignID    int64  `json:"campaign_id"`
	TimelineID    int64  `json:"timeline_id"`
	SequenceIndex int    `json:"sequence_index"`
	Version       uint64 `json:"version"`
}

type TimelineListData struct {
	CampaignID int64      `json:"campaign_id"`
	Timelines  []Timeline `json:"timelines"`
}
