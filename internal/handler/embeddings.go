package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hero-meeting/platform/internal/middleware"
	"github.com/hero-meeting/platform/internal/transcript"
	"github.com/hero-meeting/platform/pkg/logger"
)

const defaultBackfillBatch = 100

// EmbeddingHandler handles embedding maintenance endpoints.
type EmbeddingHandler struct {
	recorder *transcript.Recorder
	logger   *logger.Logger
}

// NewEmbeddingHandler creates a new embedding handler.
func NewEmbeddingHandler(rec *transcript.Recorder, log *logger.Logger) *EmbeddingHandler {
	return &EmbeddingHandler{
		recorder: rec,
		logger:   log,
	}
}

type backfillRequest struct {
	OrgName   string `json:"orgName,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
}

// Backfill handles POST /api/v1/embeddings/backfill
// It embeds transcripts stored before embeddings were configured.
func (h *EmbeddingHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orgName := req.OrgName
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

	batchSize := req.BatchSize
	if batchSize <= 0 || batchSize > 1000 {
		batchSize = defaultBackfillBatch
	}

	embedded, err := h.recorder.Backfill(r.Context(), orgName, batchSize)
	if err != nil {
		h.logger.Errorw("backfill failed", "org_name", orgName, "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orgName":  orgName,
		"embedded": embedded,
	})
}
