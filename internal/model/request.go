package model

type SetLengthRequest struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (r SetLengthRequest) Length() Length {
	return Length{Hours: r.Hours, Minutes: r.Minutes, Seconds: r.Seconds}
}

type SetSequenceIndexRequest struct {
	Index int `json:"index"`
}

type WriteResult struct {
	Applied bool   `json:"applied"`
	Version uint64 `json:"version"`
}

type TimelineDeletedPayload struct {
	TimelineID int64 `json:"timeline_id"`
}
