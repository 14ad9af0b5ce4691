package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hero-meeting/platform/internal/middleware"
	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/internal/window"
	"github.com/hero-meeting/platform/pkg/logger"
)

// UtteranceHandler handles transcribed utterance ingestion.
type UtteranceHandler struct {
	window *window.Store
	logger *logger.Logger
}

// NewUtteranceHandler creates a new utterance handler.
func NewUtteranceHandler(win *window.Store, log *logger.Logger) *UtteranceHandler {
	return &UtteranceHandler{
		window: win,
		logger: log,
	}
}

// Store handles POST /api/v1/utterances
func (h *UtteranceHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req model.StoreUtteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateRoomName(req.RoomName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Speech); err != nil {
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

	speaker := model.ParseSpeaker(req.Speaker)
	h.window.Append(req.RoomName, speaker, req.Speech, orgName, req.SpeakerID)

	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "stored",
	})
}
