package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EdgeSynthesizer calls an HTTP text-to-speech endpoint and returns the
// synthesized audio as a data reference.
type EdgeSynthesizer struct {
	endpoint string
	voice    string
	client   *http.Client
}

// NewEdgeSynthesizer creates a synthesizer for the given endpoint.
func NewEdgeSynthesizer(endpoint, voice string) (*EdgeSynthesizer, error) {
	if endpoint == "" {
		return nil, errors.New("TTS endpoint is required")
	}
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	return &EdgeSynthesizer{
		endpoint: endpoint,
		voice:    voice,
		client:   &http.Client{Timeout: 20 * time.Second},
	}, nil
}

type synthesisRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Provider string `json:"provider,omitempty"`
}

type synthesisResponse struct {
	AudioBase64 string  `json:"audioBase64"`
	Duration    float64 `json:"duration"`
}

// Synthesize posts the text to the endpoint and returns a data URI for the
// returned audio.
func (s *EdgeSynthesizer) Synthesize(ctx context.Context, text, providerHint string) (string, error) {
	body, err := json.Marshal(synthesisRequest{
		Text:     text,
		Voice:    s.voice,
		Provider: providerHint,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("synthesis returned status %d: %s", resp.StatusCode, payload)
	}

	var out synthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode synthesis response: %w", err)
	}
	if out.AudioBase64 == "" {
		return "", errors.New("synthesis returned no audio")
	}

	return "data:audio/mp3;base64," + out.AudioBase64, nil
}
