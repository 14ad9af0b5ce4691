package model

import (
	"time"
)

// Meeting is one durable record of a single continuous meeting session.
// A room name may repeat across distinct sessions; sessions are
// disambiguated by StartedAt and ID.
type Meeting struct {
	ID               string            `json:"id"`
	RoomName         string            `json:"room_name"`
	OrgName          string            `json:"org_name,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          *time.Time        `json:"ended_at,omitempty"`
	DurationMinutes  int               `json:"duration_minutes,omitempty"`
	ParticipantCount int               `json:"participant_count,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// MeetingSummary is a persisted LLM-generated summary of a meeting.
type MeetingSummary struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	RoomName  string    `json:"room_name"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// StartMeetingRequest is the request to explicitly start a session.
type StartMeetingRequest struct {
	RoomName string            `json:"roomName"`
	OrgName  string            `json:"orgName,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EndMeetingRequest is the request to end the active session for a room.
type EndMeetingRequest struct {
	RoomName string `json:"roomName"`
}

// ListMeetingsResponse is the response for meeting listings.
type ListMeetingsResponse struct {
	Meetings []Meeting `json:"meetings"`
	Count    int       `json:"count"`
	OrgName  string    `json:"orgName,omitempty"`
}

// TranscriptExport is the JSON export of one meeting's transcript.
type TranscriptExport struct {
	Meeting     *Meeting           `json:"meeting"`
	Transcripts []ExportedLine     `json:"transcripts"`
	Metadata    TranscriptMetadata `json:"metadata"`
}

// ExportedLine is one line of an exported transcript.
type ExportedLine struct {
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptMetadata describes an export.
type TranscriptMetadata struct {
	TotalMessages int       `json:"totalMessages"`
	ExportedAt    time.Time `json:"exportedAt"`
}
