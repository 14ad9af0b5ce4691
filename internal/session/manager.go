// Package session bridges the stateless request lifecycle to durable
// meeting session identities.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hero-meeting/platform/internal/model"
	natsclient "github.com/hero-meeting/platform/internal/nats"
	"github.com/hero-meeting/platform/pkg/logger"
	"github.com/hero-meeting/platform/pkg/metrics"
)

// ErrSessionCreate signals that the durable store could not create a
// session. Callers treat this as "continue without persistence".
var ErrSessionCreate = errors.New("session create failed")

// MeetingStore is the durable-store surface the manager needs.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, roomName, orgName string, metadata map[string]string) (*model.Meeting, error)
	LatestMeetingByRoom(ctx context.Context, roomName string) (*model.Meeting, error)
	MeetingByID(ctx context.Context, id string) (*model.Meeting, error)
	EndMeeting(ctx context.Context, id string, endedAt time.Time, durationMinutes int) error
}

// Manager tracks the mapping from room name to the active durable session.
// Sessions start lazily on first write and end on request; a room may cycle
// through many sessions over time.
type Manager struct {
	store  MeetingStore
	events *natsclient.Publisher
	log    *logger.Logger

	mu     sync.Mutex
	active map[string]string // roomName -> meeting id
}

// NewManager creates a session manager.
func NewManager(store MeetingStore, events *natsclient.Publisher, log *logger.Logger) *Manager {
	return &Manager{
		store:  store,
		events: events,
		log:    log,
		active: make(map[string]string),
	}
}

// Start creates a new durable session for a room and caches it as active.
func (m *Manager) Start(ctx context.Context, roomName, orgName string, metadata map[string]string) (string, error) {
	meeting, err := m.store.CreateMeeting(ctx, roomName, orgName, metadata)
	if err != nil {
		m.log.Errorw("failed to create meeting session", "room_name", roomName, "error", err)
		return "", fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}

	m.mu.Lock()
	m.active[roomName] = meeting.ID
	m.mu.Unlock()

	metrics.MeetingsTotal.WithLabelValues(meeting.OrgName).Inc()
	m.log.Infow("meeting session started",
		"room_name", roomName, "meeting_id", meeting.ID, "org_name", meeting.OrgName)

	m.events.Publish(ctx, &model.MeetingEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Kind:      model.EventSessionStarted,
		RoomName:  roomName,
		OrgName:   meeting.OrgName,
		MeetingID: meeting.ID,
		CreatedAt: time.Now(),
	})

	return meeting.ID, nil
}

// ResolveActive returns the active session id for a room, consulting the
// cache, then the durable store's most recent session, then creating one.
// Concurrent first calls for the same room may briefly race two sessions
// into existence; later calls converge on the most recently started one.
func (m *Manager) ResolveActive(ctx context.Context, roomName, orgName string) (string, error) {
	m.mu.Lock()
	if id, ok := m.active[roomName]; ok {
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	meeting, err := m.store.LatestMeetingByRoom(ctx, roomName)
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	if meeting != nil {
		m.mu.Lock()
		// Another caller may have resolved while we queried.
		if id, ok := m.active[roomName]; ok {
			m.mu.Unlock()
			return id, nil
		}
		m.active[roomName] = meeting.ID
		m.mu.Unlock()
		return meeting.ID, nil
	}

	return m.Start(ctx, roomName, orgName, nil)
}

// End closes the active session for a room, computing its duration in
// rounded minutes, and evicts the room from the cache. A missing session is
// a logged no-op.
func (m *Manager) End(ctx context.Context, roomName string) error {
	m.mu.Lock()
	id, ok := m.active[roomName]
	m.mu.Unlock()

	if !ok {
		meeting, err := m.store.LatestMeetingByRoom(ctx, roomName)
		if err != nil {
			return fmt.Errorf("failed to look up session: %w", err)
		}
		if meeting == nil {
			m.log.Warnw("no active meeting found for room", "room_name", roomName)
			return nil
		}
		id = meeting.ID
	}

	meeting, err := m.store.MeetingByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	endedAt := time.Now()
	durationMinutes := 0
	var orgName string
	if meeting != nil {
		durationMinutes = int(math.Round(endedAt.Sub(meeting.StartedAt).Minutes()))
		orgName = meeting.OrgName
	}

	if err := m.store.EndMeeting(ctx, id, endedAt, durationMinutes); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	m.mu.Lock()
	delete(m.active, roomName)
	m.mu.Unlock()

	m.log.Infow("meeting session ended",
		"room_name", roomName, "meeting_id", id, "duration_minutes", durationMinutes)

	m.events.Publish(ctx, &model.MeetingEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Kind:      model.EventSessionEnded,
		RoomName:  roomName,
		OrgName:   strings.ToLower(orgName),
		MeetingID: id,
		CreatedAt: endedAt,
	})

	return nil
}
