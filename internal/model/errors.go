package model

import "errors"

var (
	// Block related errors
	ErrBlockNotFound = errors.New("block not found")
	ErrInvalidLength = errors.New("invalid block length")

	// Timeline / campaign related errors
	ErrTimelineNotFound  = errors.New("timeline not found")
	ErrTimelineExists    = errors.New("timeline already rendered")
	ErrTimelineIDMissing = errors.New("screen props carry no campaign_timeline_id")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrInvalidIndex      = errors.New("invalid sequence index")

	// Ordering surface errors
	ErrDragDetached = errors.New("drag and drop is not attached")

	// Versioned writes that lost to a newer stamp
	ErrStaleWrite = errors.New("stale write ignored")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
