package model

import (
	"time"
)

// EventKind is the type of meeting event published on the event bus.
type EventKind string

const (
	EventUtteranceStored EventKind = "utterance.stored"
	EventSessionStarted  EventKind = "session.started"
	EventSessionEnded    EventKind = "session.ended"
	EventAnswerGenerated EventKind = "answer.generated"
)

// MeetingEvent is a fire-and-forget notification about meeting activity.
type MeetingEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	RoomName  string    `json:"room_name"`
	OrgName   string    `json:"org_name,omitempty"`
	MeetingID string    `json:"meeting_id,omitempty"`
	Speaker   Speaker   `json:"speaker,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
