package model

type NotificationType string

const (
	NotificationTimelineDeleted NotificationType = "timeline.deleted"
)

// Notification is an asynchronous message pushed by the content server.
type Notification struct {
	Type       NotificationType `json:"type"`
	TimelineID int64            `json:"timeline_id"`
}
