package model

import "fmt"

const (
	MaxHours   = 23
	MaxMinutes = 59
	MaxSeconds = 59
)

// Length is the on-air duration of a block placed on a channel timeline.
type Length struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (l Length) Validate() error {
	if l.Hours < 0 || l.Hours > MaxHours {
		return fmt.Errorf("%w: hours %d out of range 0..%d", ErrInvalidLength, l.Hours, MaxHours)
	}
	if l.Minutes < 0 || l.Minutes > MaxMinutes {
		return fmt.Errorf("%w: minutes %d out of range 0..%d", ErrInvalidLength, l.Minutes, MaxMinutes)
	}
	if l.Seconds < 0 || l.Seconds > MaxSeconds {
		return fmt.Errorf("%w: seconds %d out of range 0..%d", ErrInvalidLength, l.Seconds, MaxSeconds)
	}
	return nil
}

func (l Length) TotalSeconds() int {
	return l.Hours*3600 + l.Minutes*60 + l.Seconds
}

func (l Length) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", l.Hours, l.Minutes, l.Seconds)
}

// BlockData is the public projection of a block returned by Block.Data.
type BlockData struct {
	BlockID          int64  `json:"block_id"`
	BlockType        string `json:"block_type"`
	BlockName        string `json:"block_name"`
	BlockDescription string `json:"block_description"`
	BlockIcon        string `json:"block_icon"`
}

type Block struct {
	ID          int64  `json:"id"`
	TimelineID  int64  `json:"timeline_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Length      Length `json:"length"`
}
