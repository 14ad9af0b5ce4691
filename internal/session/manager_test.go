package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

type fakeMeetingStore struct {
	meetings  map[string]*model.Meeting // id -> meeting
	byRoom    map[string]*model.Meeting // room -> latest
	createErr error
	created   int
	ended     map[string]int // id -> durationMinutes
}

func newFakeMeetingStore() *fakeMeetingStore {
	return &fakeMeetingStore{
		meetings: make(map[string]*model.Meeting),
		byRoom:   make(map[string]*model.Meeting),
		ended:    make(map[string]int),
	}
}

func (s *fakeMeetingStore) CreateMeeting(ctx context.Context, roomName, orgName string, metadata map[string]string) (*model.Meeting, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created++
	m := &model.Meeting{
		ID:        uuid.NewString(),
		RoomName:  roomName,
		OrgName:   strings.ToLower(orgName),
		StartedAt: time.Now(),
		Metadata:  metadata,
	}
	s.meetings[m.ID] = m
	s.byRoom[roomName] = m
	return m, nil
}

func (s *fakeMeetingStore) LatestMeetingByRoom(ctx context.Context, roomName string) (*model.Meeting, error) {
	return s.byRoom[roomName], nil
}

func (s *fakeMeetingStore) MeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	return s.meetings[id], nil
}

func (s *fakeMeetingStore) EndMeeting(ctx context.Context, id string, endedAt time.Time, durationMinutes int) error {
	s.ended[id] = durationMinutes
	return nil
}

func TestStartCreatesAndCaches(t *testing.T) {
	store := newFakeMeetingStore()
	m := NewManager(store, nil, logger.NewNop())

	id, err := m.Start(context.Background(), "standup", "Acme", map[string]string{"host": "sam"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, store.created)

	// The active session resolves from cache without another create.
	resolved, err := m.ResolveActive(context.Background(), "standup", "acme")
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
	assert.Equal(t, 1, store.created)
}

func TestStartWrapsStoreFailure(t *testing.T) {
	store := newFakeMeetingStore()
	store.createErr = errors.New("disk full")
	m := NewManager(store, nil, logger.NewNop())

	_, err := m.Start(context.Background(), "standup", "acme", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionCreate))
}

func TestResolveActiveReconcilesLatestSession(t *testing.T) {
	store := newFakeMeetingStore()
	// A session exists durably but is unknown to this manager instance,
	// as after a process restart.
	existing, err := store.CreateMeeting(context.Background(), "standup", "acme", nil)
	require.NoError(t, err)
	store.created = 0

	m := NewManager(store, nil, logger.NewNop())

	resolved, err := m.ResolveActive(context.Background(), "standup", "acme")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, resolved)
	assert.Equal(t, 0, store.created, "should adopt the existing session, not create a new one")
}

func TestResolveActiveCreatesLazily(t *testing.T) {
	store := newFakeMeetingStore()
	m := NewManager(store, nil, logger.NewNop())

	id, err := m.ResolveActive(context.Background(), "fresh-room", "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, store.created)
}

func TestEndComputesRoundedDuration(t *testing.T) {
	store := newFakeMeetingStore()
	m := NewManager(store, nil, logger.NewNop())

	id, err := m.Start(context.Background(), "standup", "acme", nil)
	require.NoError(t, err)

	// 183 seconds rounds to 3 minutes.
	store.meetings[id].StartedAt = time.Now().Add(-183 * time.Second)

	require.NoError(t, m.End(context.Background(), "standup"))

	duration, ok := store.ended[id]
	require.True(t, ok)
	assert.Equal(t, 3, duration)
}

func TestEndWithoutSessionIsNoOp(t *testing.T) {
	store := newFakeMeetingStore()
	m := NewManager(store, nil, logger.NewNop())

	require.NoError(t, m.End(context.Background(), "never-started"))
	assert.Empty(t, store.ended)
}

func TestEndEvictsCache(t *testing.T) {
	store := newFakeMeetingStore()
	m := NewManager(store, nil, logger.NewNop())

	first, err := m.Start(context.Background(), "standup", "acme", nil)
	require.NoError(t, err)
	require.NoError(t, m.End(context.Background(), "standup"))

	// The room no longer resolves to the ended session once the durable
	// record is gone too.
	delete(store.byRoom, "standup")

	second, err := m.ResolveActive(context.Background(), "standup", "acme")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
