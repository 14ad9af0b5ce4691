package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hero-meeting/platform/internal/hero"
	"github.com/hero-meeting/platform/internal/llm"
	"github.com/hero-meeting/platform/internal/middleware"
	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/internal/session"
	"github.com/hero-meeting/platform/pkg/logger"
)

const (
	defaultListLimit      = 20
	maxListLimit          = 100
	summaryTranscriptMax  = 500
	summaryTimeoutDefault = 30 * time.Second
)

// MeetingStore is the subset of the durable store the meeting endpoints read
// and write. *store.Store satisfies it.
type MeetingStore interface {
	LatestMeetingByRoom(ctx context.Context, roomName string) (*model.Meeting, error)
	ListMeetings(ctx context.Context, limit int) ([]model.Meeting, error)
	ListMeetingsByOrg(ctx context.Context, orgName string, limit int) ([]model.Meeting, error)
	TranscriptsByMeeting(ctx context.Context, meetingID string, limit int) ([]model.Utterance, error)
	SaveSummary(ctx context.Context, meetingID, roomName, summary string) error
}

// MeetingHandler handles meeting session and transcript endpoints.
type MeetingHandler struct {
	store    MeetingStore
	sessions *session.Manager
	llm      llm.Client // nil disables summary generation
	llmModel string
	logger   *logger.Logger
}

// NewMeetingHandler creates a new meeting handler.
func NewMeetingHandler(st MeetingStore, sessions *session.Manager, llmClient llm.Client, llmModel string, log *logger.Logger) *MeetingHandler {
	return &MeetingHandler{
		store:    st,
		sessions: sessions,
		llm:      llmClient,
		llmModel: llmModel,
		logger:   log,
	}
}

// Start handles POST /api/v1/meetings/start
func (h *MeetingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateRoomName(req.RoomName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orgName := req.OrgName
	if orgName == "" {
		orgName = middleware.GetOrgName(r.Context())
	}
	if err := middleware.ValidateOrgName(orgName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meetingID, err := h.sessions.Start(r.Context(), req.RoomName, orgName, req.Metadata)
	if err != nil {
		h.logger.Errorw("failed to start meeting", "room_name", req.RoomName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start meeting")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"meetingId": meetingID,
		"roomName":  req.RoomName,
	})
}

// End handles POST /api/v1/meetings/end
func (h *MeetingHandler) End(w http.ResponseWriter, r *http.Request) {
	var req model.EndMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateRoomName(req.RoomName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.End(r.Context(), req.RoomName); err != nil {
		h.logger.Errorw("failed to end meeting", "room_name", req.RoomName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end meeting")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ended",
		"roomName": req.RoomName,
	})
}

// List handles GET /api/v1/meetings
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultListLimit)

	meetings, err := h.store.ListMeetings(r.Context(), limit)
	if err != nil {
		h.logger.Errorw("failed to list meetings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMeetingsResponse{
		Meetings: meetings,
		Count:    len(meetings),
	})
}

// ListByOrg handles GET /api/v1/meetings/by-org
func (h *MeetingHandler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	orgName := r.URL.Query().Get("orgName")
	if orgName == "" {
		orgName = middleware.GetOrgName(r.Context())
	}
	if orgName == "" {
		writeError(w, http.StatusBadRequest, "org name is required")
		return
	}
	if err := middleware.ValidateOrgName(orgName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := parseLimit(r, defaultListLimit)

	meetings, err := h.store.ListMeetingsByOrg(r.Context(), orgName, limit)
	if err != nil {
		h.logger.Errorw("failed to list meetings", "org_name", orgName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMeetingsResponse{
		Meetings: meetings,
		Count:    len(meetings),
		OrgName:  orgName,
	})
}

// Transcript handles GET /api/v1/meetings/{roomName}/transcript
func (h *MeetingHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "roomName")
	if err := middleware.ValidateRoomName(roomName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meeting, err := h.store.LatestMeetingByRoom(r.Context(), roomName)
	if err != nil {
		h.logger.Errorw("failed to look up meeting", "room_name", roomName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up meeting")
		return
	}
	if meeting == nil {
		writeError(w, http.StatusNotFound, "no meeting found for room")
		return
	}

	transcripts, err := h.store.TranscriptsByMeeting(r.Context(), meeting.ID, summaryTranscriptMax)
	if err != nil {
		h.logger.Errorw("failed to load transcript", "meeting_id", meeting.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	lines := make([]model.ExportedLine, 0, len(transcripts))
	for _, u := range transcripts {
		lines = append(lines, model.ExportedLine{
			Speaker:   u.Speaker.Label(),
			Message:   u.Message,
			Timestamp: u.Timestamp,
		})
	}

	writeJSON(w, http.StatusOK, &model.TranscriptExport{
		Meeting:     meeting,
		Transcripts: lines,
		Metadata: model.TranscriptMetadata{
			TotalMessages: len(lines),
			ExportedAt:    time.Now(),
		},
	})
}

// Summary handles POST /api/v1/meetings/{roomName}/summary
func (h *MeetingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "summary generation is not configured")
		return
	}

	roomName := chi.URLParam(r, "roomName")
	if err := middleware.ValidateRoomName(roomName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meeting, err := h.store.LatestMeetingByRoom(r.Context(), roomName)
	if err != nil {
		h.logger.Errorw("failed to look up meeting", "room_name", roomName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up meeting")
		return
	}
	if meeting == nil {
		writeError(w, http.StatusNotFound, "no meeting found for room")
		return
	}

	transcripts, err := h.store.TranscriptsByMeeting(r.Context(), meeting.ID, summaryTranscriptMax)
	if err != nil {
		h.logger.Errorw("failed to load transcript", "meeting_id", meeting.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if len(transcripts) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "meeting has no transcript to summarize")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), summaryTimeoutDefault)
	defer cancel()

	resp, err := h.llm.Complete(ctx, &llm.CompletionRequest{
		Model:  h.llmModel,
		Prompt: hero.BuildSummaryPrompt(meeting, transcripts),
	})
	if err != nil {
		h.logger.Errorw("summary generation failed", "meeting_id", meeting.ID, "error", err)
		writeError(w, http.StatusBadGateway, "summary generation failed")
		return
	}

	// Persistence is best effort. The caller already has the generated
	// summary, so a failed write must not turn into an error response.
	if err := h.store.SaveSummary(r.Context(), meeting.ID, roomName, resp.Content); err != nil {
		h.logger.Errorw("failed to persist summary", "meeting_id", meeting.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"meetingId": meeting.ID,
		"roomName":  roomName,
		"summary":   resp.Content,
	})
}

func parseLimit(r *http.Request, def int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxListLimit {
			limit = parsed
		}
	}
	return limit
}
