// Package gateway is the console's side of the content server: block lengths,
// block removal, campaign sequence indices and the timeline notification stream.
package gateway

import (
	"context"

	"signage-studio/internal/model"
)

type Gateway interface {
	BlockLength(ctx context.Context, blockID int64) (model.Length, error)
	SetBlockLength(ctx context.Context, blockID int64, length model.Length) error
	RemoveBlockFromChannel(ctx context.Context, blockID int64) error
	RemoveTimelineFromSequence(ctx context.Context, timelineID int64) error
	SetTimelineSequenceIndex(ctx context.Context, campaignID, timelineID int64, index int) error

	// Subscribe returns a stream of server notifications and a function that
	// ends the subscription and closes the stream.
	Subscribe() (<-chan model.Notification, func())
}

// TimelineLister is implemented by gateways that can list a campaign's timelines
// in server sequence order.
type TimelineLister interface {
	Timelines(ctx context.Context, campaignID int64) ([]model.Timeline, error)
}
