// Package hero implements the trigger detection and prompt assembly
// pipeline: the request-level orchestration that turns a triggered
// utterance into a recorded, spoken answer.
package hero

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hero-meeting/platform/internal/llm"
	"github.com/hero-meeting/platform/internal/model"
	natsclient "github.com/hero-meeting/platform/internal/nats"
	"github.com/hero-meeting/platform/internal/tts"
	"github.com/hero-meeting/platform/pkg/logger"
	"github.com/hero-meeting/platform/pkg/metrics"
)

const (
	// promptWindowEntries is how many recent window lines feed the prompt.
	promptWindowEntries = 15

	// defaultLLMTimeout bounds the generation call.
	defaultLLMTimeout = 15 * time.Second

	// ApologyResponse substitutes for an answer when the language model is
	// rate-limited, over quota, or unavailable. It is recorded into context
	// like any other answer.
	ApologyResponse = "I'm sorry - I'm having trouble reaching my language model right now. Please ask me again in a moment."
)

// ConversationWindow is the window-store surface the assembler needs.
type ConversationWindow interface {
	Append(roomName string, speaker model.Speaker, message, orgName, speakerID string)
	Context(roomName string, maxEntries int) string
	Summary(roomName string) string
}

// ContextRetriever produces past-meeting context for a question.
type ContextRetriever interface {
	RelevantContext(ctx context.Context, orgName, query string, limit int) string
}

// Result is the outcome of processing one utterance.
type Result struct {
	Triggered bool
	Answer    string // original text, as recorded
	Spoken    string // markdown-stripped text, as synthesized
	AudioRef  string
	Note      string // diagnostic message for non-triggered outcomes
}

// Assembler orchestrates trigger detection, context gathering, prompt
// construction, generation, and recording.
type Assembler struct {
	window       ConversationWindow
	retriever    ContextRetriever
	llmClient    llm.Client      // nil when no provider is configured
	synth        tts.Synthesizer // nil when speech synthesis is unconfigured
	events       *natsclient.Publisher
	llmModel     string
	llmTimeout   time.Duration
	contextLimit int
	log          *logger.Logger
}

// NewAssembler creates the assembler. llmClient and synth may be nil; the
// assembler then answers with the canned apology and skips audio.
func NewAssembler(
	win ConversationWindow,
	ret ContextRetriever,
	llmClient llm.Client,
	synth tts.Synthesizer,
	events *natsclient.Publisher,
	llmModel string,
	llmTimeout time.Duration,
	contextLimit int,
	log *logger.Logger,
) *Assembler {
	if llmTimeout <= 0 {
		llmTimeout = defaultLLMTimeout
	}
	if contextLimit <= 0 {
		contextLimit = 2
	}
	return &Assembler{
		window:       win,
		retriever:    ret,
		llmClient:    llmClient,
		synth:        synth,
		events:       events,
		llmModel:     llmModel,
		llmTimeout:   llmTimeout,
		contextLimit: contextLimit,
		log:          log,
	}
}

// Process handles one incoming utterance. A message without the trigger
// phrase returns a non-triggered Result, not an error. Only a
// non-substitutable generation failure returns an error.
func (a *Assembler) Process(ctx context.Context, req *model.HeroMessageRequest) (*Result, error) {
	triggered, question := DetectTrigger(req.Message)
	if !triggered {
		metrics.TriggerOutcomes.WithLabelValues("not_triggered").Inc()
		return &Result{Triggered: false, Note: "No trigger phrase detected"}, nil
	}

	a.log.Infow("hero triggered", "room_name", req.RoomName, "question", question)

	windowContext := a.window.Context(req.RoomName, promptWindowEntries)
	summary := a.window.Summary(req.RoomName)
	if windowContext == "" && req.Context != "" {
		// Callers may supply current-meeting context directly when the
		// window has not seen this room yet.
		windowContext = strings.TrimSpace(req.Context)
	}

	var pastContext string
	if req.OrgName != "" && a.retriever != nil {
		pastContext = a.retriever.RelevantContext(ctx, req.OrgName, question, a.contextLimit)
	}

	prompt := BuildPrompt(question, summary, windowContext, pastContext)

	answer, err := a.generate(ctx, prompt)
	if err != nil {
		metrics.TriggerOutcomes.WithLabelValues("failed").Inc()
		return nil, err
	}

	spoken := StripMarkdown(answer)

	// The unstripped answer is what history keeps; the window's mirror
	// carries it to durable storage.
	a.window.Append(req.RoomName, model.SpeakerHero, answer, req.OrgName, "")

	var audioRef string
	if a.synth != nil {
		ref, synthErr := a.synth.Synthesize(ctx, spoken, req.TTSProvider)
		if synthErr != nil {
			metrics.TTSSyntheses.WithLabelValues(req.TTSProvider, "error").Inc()
			a.log.Warnw("speech synthesis failed", "room_name", req.RoomName, "error", synthErr)
		} else {
			metrics.TTSSyntheses.WithLabelValues(req.TTSProvider, "ok").Inc()
			audioRef = ref
		}
	}

	a.events.Publish(ctx, &model.MeetingEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Kind:      model.EventAnswerGenerated,
		RoomName:  req.RoomName,
		OrgName:   strings.ToLower(req.OrgName),
		Speaker:   model.SpeakerHero,
		Message:   answer,
		CreatedAt: time.Now(),
	})

	metrics.TriggerOutcomes.WithLabelValues("triggered").Inc()
	return &Result{
		Triggered: true,
		Answer:    answer,
		Spoken:    spoken,
		AudioRef:  audioRef,
	}, nil
}

// generate runs the bounded LLM call, substituting the canned apology for
// rate-limit, quota, and availability failures.
func (a *Assembler) generate(ctx context.Context, prompt string) (string, error) {
	if a.llmClient == nil {
		a.log.Warnw("no LLM provider configured, answering with apology")
		return ApologyResponse, nil
	}

	llmCtx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.llmClient.Complete(llmCtx, &llm.CompletionRequest{
		Model:  a.llmModel,
		Prompt: prompt,
	})
	if err != nil {
		if llm.IsUnavailable(err) {
			metrics.RecordLLMRequest(a.llmModel, "unavailable", time.Since(start).Seconds(), 0, 0)
			a.log.Warnw("LLM unavailable, answering with apology", "error", err)
			return ApologyResponse, nil
		}
		metrics.RecordLLMRequest(a.llmModel, "error", time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	metrics.RecordLLMRequest(resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp.Content, nil
}
