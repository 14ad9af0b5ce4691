package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hero-meeting/platform/internal/hero"
	"github.com/hero-meeting/platform/internal/middleware"
	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

// HeroHandler handles trigger detection and answer generation.
type HeroHandler struct {
	assembler *hero.Assembler
	logger    *logger.Logger
}

// NewHeroHandler creates a new hero handler.
func NewHeroHandler(assembler *hero.Assembler, log *logger.Logger) *HeroHandler {
	return &HeroHandler{
		assembler: assembler,
		logger:    log,
	}
}

// Message handles POST /api/v1/hero/message
func (h *HeroHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req model.HeroMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateRoomName(req.RoomName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OrgName == "" {
		req.OrgName = middleware.GetOrgName(r.Context())
	}
	if err := middleware.ValidateOrgName(req.OrgName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.assembler.Process(r.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to generate answer", "room_name", req.RoomName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate answer")
		return
	}

	if !result.Triggered {
		writeJSON(w, http.StatusOK, &model.HeroMessageResponse{
			Triggered: false,
			Message:   result.Note,
		})
		return
	}

	writeJSON(w, http.StatusOK, &model.HeroMessageResponse{
		Triggered: true,
		Response:  result.Answer,
		AudioRef:  result.AudioRef,
	})
}
