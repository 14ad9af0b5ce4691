package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateRoomName validates a meeting room name.
func ValidateRoomName(name string) error {
	if len(name) == 0 {
		return errors.New("room name cannot be empty")
	}
	if len(name) > 256 {
		return errors.New("room name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("room name must be valid UTF-8")
	}
	return nil
}

// ValidateOrgName validates an organization name. Empty is allowed; callers
// without an org run without cross-meeting context.
func ValidateOrgName(name string) error {
	if len(name) > 64 {
		return errors.New("org name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("org name must be valid UTF-8")
	}
	return nil
}

// ValidateMessageContent validates utterance content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateMeetingID validates a meeting ID.
func ValidateMeetingID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid meeting ID format")
	}
	return nil
}
