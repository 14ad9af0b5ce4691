// Package window provides the per-room in-memory conversation window: fast,
// ephemeral recall of what was just said, independent of durable storage.
package window

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
	"github.com/hero-meeting/platform/pkg/metrics"
)

// DefaultMaxEntries is how many utterances are retained per room.
const DefaultMaxEntries = 50

// mirrorTimeout bounds the fire-and-forget durable write.
const mirrorTimeout = 30 * time.Second

// Mirror receives every appended utterance for best-effort durable
// persistence. Implementations log their own failures; there is nothing for
// the caller to await.
type Mirror interface {
	Record(ctx context.Context, u *model.Utterance)
}

// Store is the bounded in-memory conversation window, keyed by room.
// It lives for the process lifetime; a restart loses the window but not
// durable history.
type Store struct {
	mu         sync.RWMutex
	rooms      map[string][]*model.Utterance
	maxEntries int
	mirror     Mirror
	log        *logger.Logger
}

// NewStore creates a conversation window store. mirror may be nil, in which
// case entries stay in memory only.
func NewStore(mirror Mirror, log *logger.Logger) *Store {
	return &Store{
		rooms:      make(map[string][]*model.Utterance),
		maxEntries: DefaultMaxEntries,
		mirror:     mirror,
		log:        log,
	}
}

// Append records one utterance for a room, trimming to the most recent
// entries, and forwards it to the durable mirror without blocking. It never
// fails.
func (s *Store) Append(roomName string, speaker model.Speaker, message, orgName, speakerID string) {
	u := &model.Utterance{
		ID:        uuid.Must(uuid.NewV7()).String(),
		RoomName:  roomName,
		OrgName:   strings.ToLower(orgName),
		Speaker:   speaker,
		SpeakerID: speakerID,
		Message:   strings.TrimSpace(message),
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	entries := append(s.rooms[roomName], u)
	if len(entries) > s.maxEntries {
		entries = entries[len(entries)-s.maxEntries:]
	}
	s.rooms[roomName] = entries
	s.mu.Unlock()

	metrics.UtterancesStored.WithLabelValues(string(u.Speaker)).Inc()
	s.log.Debugw("window entry added", "room_name", roomName, "speaker", u.Speaker)

	if s.mirror != nil {
		// Detached from any request context so a finished request does not
		// cancel the durable write.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			defer cancel()
			s.mirror.Record(ctx, u)
		}()
	}
}

// Context returns up to maxEntries most recent utterances as
// "<Speaker Label>: <message>" lines, oldest first. Empty string when the
// room has no history.
func (s *Store) Context(roomName string, maxEntries int) string {
	s.mu.RLock()
	entries := s.rooms[roomName]
	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Speaker.Label(), e.Message))
	}
	s.mu.RUnlock()

	return strings.Join(lines, "\n")
}

// History returns up to maxEntries most recent utterances as structured data,
// oldest first.
func (s *Store) History(roomName string, maxEntries int) []model.Utterance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.rooms[roomName]
	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	out := make([]model.Utterance, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}

// Summary returns a one-line statistic for a room's conversation.
func (s *Store) Summary(roomName string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.rooms[roomName]
	if len(entries) == 0 {
		return "No previous conversation in this meeting."
	}

	var userCount, heroCount int
	for _, e := range entries {
		switch e.Speaker {
		case model.SpeakerUser:
			userCount++
		case model.SpeakerHero:
			heroCount++
		}
	}

	elapsed := entries[len(entries)-1].Timestamp.Sub(entries[0].Timestamp)
	minutes := int(math.Round(elapsed.Minutes()))

	return fmt.Sprintf(
		"This meeting has %d total messages (%d from users, %d from Hero AI) over approximately %d minutes.",
		len(entries), userCount, heroCount, minutes,
	)
}

// Clear drops all in-memory history for a room. Durable storage is
// unaffected.
func (s *Store) Clear(roomName string) {
	s.mu.Lock()
	delete(s.rooms, roomName)
	s.mu.Unlock()

	s.log.Infow("window cleared", "room_name", roomName)
}

// ActiveRooms lists rooms that currently hold window history.
func (s *Store) ActiveRooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
