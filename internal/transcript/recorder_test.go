package transcript

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/internal/session"
	"github.com/hero-meeting/platform/pkg/logger"
)

type fakeStore struct {
	inserted   []*model.Utterance
	embedded   map[string]bool
	unembedded []model.Utterance
	insertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{embedded: make(map[string]bool)}
}

func (s *fakeStore) InsertTranscript(ctx context.Context, u *model.Utterance) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, u)
	return nil
}

func (s *fakeStore) MarkEmbedded(ctx context.Context, transcriptID string) error {
	s.embedded[transcriptID] = true
	return nil
}

func (s *fakeStore) ListUnembedded(ctx context.Context, orgName string, limit int) ([]model.Utterance, error) {
	if limit < len(s.unembedded) {
		return s.unembedded[:limit], nil
	}
	return s.unembedded, nil
}

type fakeResolver struct {
	meetingID string
	err       error
}

func (r *fakeResolver) ResolveActive(ctx context.Context, roomName, orgName string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.meetingID, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2}, nil
}

func (e *fakeEmbedder) Dimension() int { return 2 }

type fakeIndex struct {
	added []*model.Utterance
	err   error
}

func (i *fakeIndex) AddUtterance(ctx context.Context, u *model.Utterance) error {
	if i.err != nil {
		return i.err
	}
	i.added = append(i.added, u)
	return nil
}

func testUtterance(org string) *model.Utterance {
	return &model.Utterance{
		ID:        uuid.NewString(),
		RoomName:  "demo",
		OrgName:   org,
		Speaker:   model.SpeakerUser,
		Message:   "hello",
		Timestamp: time.Now(),
	}
}

func TestRecordPersistsAndIndexes(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	embedder := &fakeEmbedder{}
	rec := NewRecorder(store, &fakeResolver{meetingID: "m1"}, embedder, index, nil, logger.NewNop())

	u := testUtterance("acme")
	rec.Record(context.Background(), u)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "m1", store.inserted[0].MeetingID)

	require.Len(t, index.added, 1)
	assert.NotEmpty(t, index.added[0].Embedding)
	assert.True(t, store.embedded[u.ID])
}

func TestRecordSkipsEmbeddingWithoutOrg(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	embedder := &fakeEmbedder{}
	rec := NewRecorder(store, &fakeResolver{meetingID: "m1"}, embedder, index, nil, logger.NewNop())

	rec.Record(context.Background(), testUtterance(""))

	require.Len(t, store.inserted, 1)
	assert.Zero(t, embedder.calls)
	assert.Empty(t, index.added)
}

func TestRecordSurvivesSessionFailure(t *testing.T) {
	store := newFakeStore()
	resolver := &fakeResolver{err: fmt.Errorf("%w: disk full", session.ErrSessionCreate)}
	rec := NewRecorder(store, resolver, nil, nil, nil, logger.NewNop())

	rec.Record(context.Background(), testUtterance("acme"))

	assert.Empty(t, store.inserted)
}

func TestRecordSurvivesEmbeddingFailure(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	rec := NewRecorder(store, &fakeResolver{meetingID: "m1"}, embedder, &fakeIndex{}, nil, logger.NewNop())

	u := testUtterance("acme")
	rec.Record(context.Background(), u)

	// The durable row lands even though embedding failed.
	require.Len(t, store.inserted, 1)
	assert.False(t, store.embedded[u.ID])
}

func TestBackfill(t *testing.T) {
	store := newFakeStore()
	store.unembedded = []model.Utterance{
		*testUtterance("acme"),
		*testUtterance("acme"),
		*testUtterance("acme"),
	}
	index := &fakeIndex{}
	rec := NewRecorder(store, &fakeResolver{meetingID: "m1"}, &fakeEmbedder{}, index, nil, logger.NewNop())

	embedded, err := rec.Backfill(context.Background(), "acme", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, embedded)
	assert.Len(t, index.added, 3)
}

func TestBackfillUnconfigured(t *testing.T) {
	rec := NewRecorder(newFakeStore(), &fakeResolver{meetingID: "m1"}, nil, nil, nil, logger.NewNop())

	_, err := rec.Backfill(context.Background(), "acme", 10)
	require.Error(t, err)
}

func TestBackfillCountsOnlySuccesses(t *testing.T) {
	store := newFakeStore()
	store.unembedded = []model.Utterance{
		*testUtterance("acme"),
		*testUtterance("acme"),
	}
	index := &fakeIndex{err: errors.New("index closed")}
	rec := NewRecorder(store, &fakeResolver{meetingID: "m1"}, &fakeEmbedder{}, index, nil, logger.NewNop())

	embedded, err := rec.Backfill(context.Background(), "acme", 10)
	require.NoError(t, err)
	assert.Zero(t, embedded)
}
