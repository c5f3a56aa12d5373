package broker

type Topic string

const (
	// TopicBlockSelected carries the selected block id.
	TopicBlockSelected Topic = "BLOCK_ON_CHANNEL_SELECTED"

	// TopicBlockLengthChanging is fired by a length knob on release.
	// Source is the knob id, data is the released value.
	TopicBlockLengthChanging Topic = "BLOCK_LENGTH_CHANGING"

	// TopicTimelineSelected carries the selected campaign timeline id.
	TopicTimelineSelected Topic = "CAMPAIGN_TIMELINE_SELECTED"

	// TopicTimelineDeleted carries the id of a timeline deleted on the server.
	TopicTimelineDeleted Topic = "TIMELINE_DELETED"
)

// Service names for the broker's service registry.
const (
	ServicePropertiesView = "PropertiesView"
	ServiceSequencerView  = "SequencerView"
	ServiceCampaignView   = "CampaignView"
)
