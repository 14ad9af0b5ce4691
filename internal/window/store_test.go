package window

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

type recordingMirror struct {
	mu       sync.Mutex
	received []*model.Utterance
	done     chan struct{}
}

func newRecordingMirror(expected int) *recordingMirror {
	return &recordingMirror{done: make(chan struct{}, expected)}
}

func (m *recordingMirror) Record(ctx context.Context, u *model.Utterance) {
	m.mu.Lock()
	m.received = append(m.received, u)
	m.mu.Unlock()
	m.done <- struct{}{}
}

func TestAppendAndContext(t *testing.T) {
	s := NewStore(nil, logger.NewNop())

	s.Append("demo", model.SpeakerUser, "hello everyone", "Acme", "u1")
	s.Append("demo", model.SpeakerHero, "Hello! How can I help you today?", "Acme", "")
	s.Append("demo", model.SpeakerSystem, "recording started", "Acme", "")

	got := s.Context("demo", 0)
	want := "User: hello everyone\nHero AI: Hello! How can I help you today?\nSystem: recording started"
	assert.Equal(t, want, got)
}

func TestContextLimitsToMostRecent(t *testing.T) {
	s := NewStore(nil, logger.NewNop())
	for i := 0; i < 20; i++ {
		s.Append("demo", model.SpeakerUser, fmt.Sprintf("message %d", i), "", "")
	}

	got := s.Context("demo", 3)
	want := "User: message 17\nUser: message 18\nUser: message 19"
	assert.Equal(t, want, got)
}

func TestContextEmptyRoom(t *testing.T) {
	s := NewStore(nil, logger.NewNop())
	assert.Equal(t, "", s.Context("nobody-here", 10))
}

func TestWindowOverflowDropsOldest(t *testing.T) {
	s := NewStore(nil, logger.NewNop())
	for i := 0; i < DefaultMaxEntries+10; i++ {
		s.Append("demo", model.SpeakerUser, fmt.Sprintf("message %d", i), "", "")
	}

	history := s.History("demo", 0)
	require.Len(t, history, DefaultMaxEntries)
	assert.Equal(t, "message 10", history[0].Message)
	assert.Equal(t, fmt.Sprintf("message %d", DefaultMaxEntries+9), history[len(history)-1].Message)
}

func TestAppendNormalizes(t *testing.T) {
	s := NewStore(nil, logger.NewNop())
	s.Append("demo", model.SpeakerUser, "  padded  ", "ACME", "u1")

	history := s.History("demo", 0)
	require.Len(t, history, 1)
	assert.Equal(t, "padded", history[0].Message)
	assert.Equal(t, "acme", history[0].OrgName)
	assert.NotEmpty(t, history[0].ID)
}

func TestSummary(t *testing.T) {
	s := NewStore(nil, logger.NewNop())

	assert.Equal(t, "No previous conversation in this meeting.", s.Summary("demo"))

	s.Append("demo", model.SpeakerUser, "one", "", "")
	s.Append("demo", model.SpeakerUser, "two", "", "")
	s.Append("demo", model.SpeakerHero, "three", "", "")

	got := s.Summary("demo")
	assert.Equal(t, "This meeting has 3 total messages (2 from users, 1 from Hero AI) over approximately 0 minutes.", got)
}

func TestClear(t *testing.T) {
	s := NewStore(nil, logger.NewNop())
	s.Append("demo", model.SpeakerUser, "hello", "", "")
	s.Clear("demo")

	assert.Equal(t, "", s.Context("demo", 0))
	assert.Empty(t, s.ActiveRooms())
}

func TestMirrorReceivesAppends(t *testing.T) {
	mirror := newRecordingMirror(2)
	s := NewStore(mirror, logger.NewNop())

	s.Append("demo", model.SpeakerUser, "first", "acme", "u1")
	s.Append("demo", model.SpeakerHero, "second", "acme", "")

	for i := 0; i < 2; i++ {
		select {
		case <-mirror.done:
		case <-time.After(2 * time.Second):
			t.Fatal("mirror did not receive utterance in time")
		}
	}

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	require.Len(t, mirror.received, 2)
	messages := []string{mirror.received[0].Message, mirror.received[1].Message}
	assert.ElementsMatch(t, []string{"first", "second"}, messages)
}

func TestAppendConcurrent(t *testing.T) {
	s := NewStore(nil, logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Append("demo", model.SpeakerUser, fmt.Sprintf("w%d-%d", n, j), "", "")
			}
		}(i)
	}
	wg.Wait()

	history := s.History("demo", 0)
	assert.Len(t, history, DefaultMaxEntries)
}
