package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertUtterance(t *testing.T, s *Store, meetingID, roomName, orgName string, speaker model.Speaker, message string, ts time.Time) string {
	t.Helper()
	u := &model.Utterance{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		RoomName:  roomName,
		OrgName:   orgName,
		Speaker:   speaker,
		Message:   message,
		Timestamp: ts,
	}
	require.NoError(t, s.InsertTranscript(context.Background(), u))
	return u.ID
}

func TestNewAppliesWALMode(t *testing.T) {
	s := newTestStore(t)

	// The connection string must actually take effect; a silently ignored
	// pragma would leave the database in rollback journal mode.
	var mode string
	require.NoError(t, s.db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var busyTimeout int
	require.NoError(t, s.db.QueryRowContext(context.Background(), "PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func TestMeetingLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateMeeting(ctx, "standup", "Acme", map[string]string{"host": "sam"})
	require.NoError(t, err)
	assert.Equal(t, "acme", created.OrgName, "org name is stored lowercase")

	loaded, err := s.MeetingByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "standup", loaded.RoomName)
	assert.Equal(t, "sam", loaded.Metadata["host"])
	assert.Nil(t, loaded.EndedAt)

	endedAt := time.Now().UTC()
	require.NoError(t, s.EndMeeting(ctx, created.ID, endedAt, 3))

	ended, err := s.MeetingByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, 3, ended.DurationMinutes)
}

func TestMeetingByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	m, err := s.MeetingByID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLatestMeetingByRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	none, err := s.LatestMeetingByRoom(ctx, "empty-room")
	require.NoError(t, err)
	assert.Nil(t, none)

	created, err := s.CreateMeeting(ctx, "standup", "acme", nil)
	require.NoError(t, err)
	_, err = s.CreateMeeting(ctx, "other-room", "acme", nil)
	require.NoError(t, err)

	latest, err := s.LatestMeetingByRoom(ctx, "standup")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, created.ID, latest.ID)
}

func TestListMeetingsByOrg(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateMeeting(ctx, "a", "acme", nil)
	require.NoError(t, err)
	_, err = s.CreateMeeting(ctx, "b", "acme", nil)
	require.NoError(t, err)
	_, err = s.CreateMeeting(ctx, "c", "globex", nil)
	require.NoError(t, err)

	// Lookup is case-insensitive.
	meetings, err := s.ListMeetingsByOrg(ctx, "ACME", 10)
	require.NoError(t, err)
	assert.Len(t, meetings, 2)

	all, err := s.ListMeetings(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTranscriptOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meeting, err := s.CreateMeeting(ctx, "standup", "acme", nil)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Second)
	insertUtterance(t, s, meeting.ID, "standup", "acme", model.SpeakerHero, "second", base.Add(10*time.Second))
	insertUtterance(t, s, meeting.ID, "standup", "acme", model.SpeakerUser, "first", base)
	insertUtterance(t, s, meeting.ID, "standup", "acme", model.SpeakerUser, "third", base.Add(20*time.Second))

	transcripts, err := s.TranscriptsByMeeting(ctx, meeting.ID, 0)
	require.NoError(t, err)
	require.Len(t, transcripts, 3)
	assert.Equal(t, "first", transcripts[0].Message)
	assert.Equal(t, "second", transcripts[1].Message)
	assert.Equal(t, "third", transcripts[2].Message)
	assert.Equal(t, model.SpeakerHero, transcripts[1].Speaker)

	byRoom, err := s.TranscriptsByRoom(ctx, "standup", 0)
	require.NoError(t, err)
	assert.Len(t, byRoom, 3)
}

func TestUnembeddedTracking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meeting, err := s.CreateMeeting(ctx, "standup", "acme", nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	first := insertUtterance(t, s, meeting.ID, "standup", "acme", model.SpeakerUser, "one", now)
	insertUtterance(t, s, meeting.ID, "standup", "acme", model.SpeakerUser, "two", now.Add(time.Second))

	pending, err := s.ListUnembedded(ctx, "acme", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, s.MarkEmbedded(ctx, first))

	pending, err = s.ListUnembedded(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "two", pending[0].Message)
}

func TestSaveSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meeting, err := s.CreateMeeting(ctx, "standup", "acme", nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveSummary(ctx, meeting.ID, "standup", "The team discussed the migration."))
}

func TestInsertTranscriptTrimsAndLowercases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meeting, err := s.CreateMeeting(ctx, "standup", "acme", nil)
	require.NoError(t, err)
	insertUtterance(t, s, meeting.ID, "standup", "ACME", model.SpeakerUser, "  padded  ", time.Now().UTC())

	transcripts, err := s.TranscriptsByMeeting(ctx, meeting.ID, 0)
	require.NoError(t, err)
	require.Len(t, transcripts, 1)
	assert.Equal(t, "padded", transcripts[0].Message)
	assert.Equal(t, "acme", transcripts[0].OrgName)
}
