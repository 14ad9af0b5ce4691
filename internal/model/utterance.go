// Package model defines data structures for the meeting platform.
package model

import (
	"strings"
	"time"
)

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerHero   Speaker = "hero"
	SpeakerSystem Speaker = "system"
)

// ParseSpeaker resolves a raw speaker string to a known role once at the
// boundary. Unknown values default to the user role.
func ParseSpeaker(raw string) Speaker {
	switch Speaker(strings.ToLower(strings.TrimSpace(raw))) {
	case SpeakerHero:
		return SpeakerHero
	case SpeakerSystem:
		return SpeakerSystem
	default:
		return SpeakerUser
	}
}

// Label returns the display label used in formatted transcripts.
func (s Speaker) Label() string {
	switch s {
	case SpeakerHero:
		return "Hero AI"
	case SpeakerSystem:
		return "System"
	default:
		return "User"
	}
}

// Utterance is one spoken or typed turn in a meeting.
// Once persisted it is immutable except for the later addition of Embedding.
type Utterance struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id,omitempty"`
	RoomName  string    `json:"room_name"`
	OrgName   string    `json:"org_name,omitempty"`
	Speaker   Speaker   `json:"speaker"`
	SpeakerID string    `json:"speaker_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// Embedding is attached asynchronously after initial persistence;
	// absence means the utterance is not yet searchable.
	Embedding []float32 `json:"-"`
}

// StoreUtteranceRequest is the request to store a transcribed utterance.
type StoreUtteranceRequest struct {
	RoomName  string `json:"roomName"`
	Speech    string `json:"speech"`
	Speaker   string `json:"speaker,omitempty"`
	SpeakerID string `json:"speakerId,omitempty"`
	OrgName   string `json:"orgName,omitempty"`
}

// HeroMessageRequest is the request to process a possibly-triggered message.
type HeroMessageRequest struct {
	RoomName    string `json:"roomName"`
	Message     string `json:"message"`
	Context     string `json:"context,omitempty"`
	OrgName     string `json:"orgName,omitempty"`
	TTSProvider string `json:"ttsProvider,omitempty"`
}

// HeroMessageResponse is the result of processing a hero message.
type HeroMessageResponse struct {
	Triggered bool   `json:"triggered"`
	Response  string `json:"response,omitempty"`
	AudioRef  string `json:"audioRef,omitempty"`
	Message   string `json:"message,omitempty"`
}
