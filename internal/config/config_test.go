package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "data/hero-meeting.db", cfg.SQLitePath)
	assert.Equal(t, "data", cfg.VectorDataDir)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.EmbeddingDimension)
	assert.Equal(t, 0.5, cfg.SimilarityThreshold)
	assert.Equal(t, 5, cfg.RetrievalLimit)
	assert.Equal(t, 2, cfg.PromptContextLimit)
	assert.Equal(t, "en-US-AriaNeural", cfg.TTSVoice)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.TracingEnabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.7")
	t.Setenv("RETRIEVAL_LIMIT", "10")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 10, cfg.RetrievalLimit)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.TracingEnabled)
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("RETRIEVAL_LIMIT", "not-a-number")
	t.Setenv("LLM_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 5, cfg.RetrievalLimit)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
}
