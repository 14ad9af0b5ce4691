// Package tts hands answer text to an external speech-synthesis
// collaborator. Synthesis mechanics are outside the context pipeline; only
// the audio reference travels back.
package tts

import (
	"context"
)

// Synthesizer turns text into a playable audio reference.
type Synthesizer interface {
	// Synthesize returns a reference to the synthesized audio for text.
	// providerHint selects among backends where the endpoint supports it.
	Synthesize(ctx context.Context, text, providerHint string) (string, error)
}
