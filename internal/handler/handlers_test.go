package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hero-meeting/platform/internal/hero"
	"github.com/hero-meeting/platform/internal/llm"
	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/internal/window"
	"github.com/hero-meeting/platform/pkg/logger"
)

func TestUtteranceStore(t *testing.T) {
	win := window.NewStore(nil, logger.NewNop())
	h := NewUtteranceHandler(win, logger.NewNop())

	body := `{"roomName":"demo","speech":"hello everyone","speaker":"user","orgName":"acme"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/utterances", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Store(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User: hello everyone", win.Context("demo", 0))
}

func TestUtteranceStoreValidation(t *testing.T) {
	win := window.NewStore(nil, logger.NewNop())
	h := NewUtteranceHandler(win, logger.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing room", `{"speech":"hello"}`},
		{"missing speech", `{"roomName":"demo"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/utterances", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Store(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUtteranceStoreUnknownSpeakerDefaultsToUser(t *testing.T) {
	win := window.NewStore(nil, logger.NewNop())
	h := NewUtteranceHandler(win, logger.NewNop())

	body := `{"roomName":"demo","speech":"mystery voice","speaker":"moderator"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/utterances", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Store(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User: mystery voice", win.Context("demo", 0))
}

func newHeroHandler(win *window.Store) *HeroHandler {
	// No LLM configured: triggered requests answer with the canned apology,
	// which is enough to exercise the handler path.
	assembler := hero.NewAssembler(win, nil, nil, nil, nil, "", time.Second, 2, logger.NewNop())
	return NewHeroHandler(assembler, logger.NewNop())
}

func TestHeroMessageNotTriggered(t *testing.T) {
	win := window.NewStore(nil, logger.NewNop())
	h := newHeroHandler(win)

	body := `{"roomName":"demo","message":"let's review the roadmap"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hero/message", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Message(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.HeroMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Triggered)
	assert.Empty(t, resp.Response)
}

func TestHeroMessageTriggered(t *testing.T) {
	win := window.NewStore(nil, logger.NewNop())
	h := newHeroHandler(win)

	body := `{"roomName":"demo","message":"Hey Hero, are you there?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hero/message", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Message(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.HeroMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Triggered)
	assert.Equal(t, hero.ApologyResponse, resp.Response)

	// The answer entered the conversation window under the hero role.
	assert.Contains(t, win.Context("demo", 0), "Hero AI: "+hero.ApologyResponse)
}

type fakeMeetingStore struct {
	meeting     *model.Meeting
	transcripts []model.Utterance
	saveErr     error
	saveCalls   int
}

func (f *fakeMeetingStore) LatestMeetingByRoom(_ context.Context, _ string) (*model.Meeting, error) {
	return f.meeting, nil
}

func (f *fakeMeetingStore) ListMeetings(_ context.Context, _ int) ([]model.Meeting, error) {
	return nil, nil
}

func (f *fakeMeetingStore) ListMeetingsByOrg(_ context.Context, _ string, _ int) ([]model.Meeting, error) {
	return nil, nil
}

func (f *fakeMeetingStore) TranscriptsByMeeting(_ context.Context, _ string, _ int) ([]model.Utterance, error) {
	return f.transcripts, nil
}

func (f *fakeMeetingStore) SaveSummary(_ context.Context, _, _, _ string) error {
	f.saveCalls++
	return f.saveErr
}

type fakeSummaryLLM struct {
	content string
}

func (f *fakeSummaryLLM) Complete(_ context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: f.content}, nil
}

func (f *fakeSummaryLLM) Name() string { return "fake" }

func summaryRequest(roomName string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings/"+roomName+"/summary", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("roomName", roomName)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestMeetingSummarySurvivesSaveFailure(t *testing.T) {
	st := &fakeMeetingStore{
		meeting: &model.Meeting{ID: "m1", RoomName: "demo", StartedAt: time.Now()},
		transcripts: []model.Utterance{
			{MeetingID: "m1", Speaker: model.SpeakerUser, Message: "we ship on friday", Timestamp: time.Now()},
		},
		saveErr: errors.New("disk full"),
	}
	h := NewMeetingHandler(st, nil, &fakeSummaryLLM{content: "The team agreed to ship on Friday."}, "test-model", logger.NewNop())

	rec := httptest.NewRecorder()
	h.Summary(rec, summaryRequest("demo"))

	// Generation succeeded, so a failed persistence write is logged and
	// swallowed rather than surfaced to the caller.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The team agreed to ship on Friday.", resp["summary"])
	assert.Equal(t, "m1", resp["meetingId"])
	assert.Equal(t, 1, st.saveCalls)
}

func TestMeetingSummaryNoMeeting(t *testing.T) {
	h := NewMeetingHandler(&fakeMeetingStore{}, nil, &fakeSummaryLLM{content: "x"}, "test-model", logger.NewNop())

	rec := httptest.NewRecorder()
	h.Summary(rec, summaryRequest("empty-room"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeroMessageValidation(t *testing.T) {
	win := window.NewStore(nil, logger.NewNop())
	h := newHeroHandler(win)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hero/message", strings.NewReader(`{"message":"hero hi"}`))
	rec := httptest.NewRecorder()

	h.Message(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
