// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hero-meeting/platform/internal/config"
	"github.com/hero-meeting/platform/internal/embedding"
	"github.com/hero-meeting/platform/internal/handler"
	"github.com/hero-meeting/platform/internal/hero"
	"github.com/hero-meeting/platform/internal/llm"
	"github.com/hero-meeting/platform/internal/middleware"
	natsclient "github.com/hero-meeting/platform/internal/nats"
	"github.com/hero-meeting/platform/internal/retriever"
	"github.com/hero-meeting/platform/internal/session"
	"github.com/hero-meeting/platform/internal/store"
	"github.com/hero-meeting/platform/internal/transcript"
	"github.com/hero-meeting/platform/internal/tts"
	"github.com/hero-meeting/platform/internal/vector"
	"github.com/hero-meeting/platform/internal/window"
	"github.com/hero-meeting/platform/pkg/logger"
	"github.com/hero-meeting/platform/pkg/tracing"
)

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Infow("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "hero-meeting-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warnw("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// NATS is optional; without it events are dropped and the platform
	// still serves requests.
	var natsConn *natsclient.Client
	if cfg.NATSURL != "" {
		natsConn, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warnw("failed to connect to NATS, events disabled", "error", err)
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}
	events := natsclient.NewPublisher(natsConn, log)
	if natsConn != nil {
		if err := events.EnsureStream(ctx); err != nil {
			log.Warnw("failed to ensure event stream", "error", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Errorw("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.SQLitePath, log)
	if err != nil {
		log.Errorw("failed to open transcript store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Embeddings and vector search require an OpenAI key. Without one the
	// platform falls back to recent-meeting context.
	var embedder embedding.Provider
	var vecIndex *vector.Index
	if cfg.OpenAIAPIKey != "" {
		provider, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
		if err != nil {
			log.Warnw("failed to create embedding provider, semantic search disabled", "error", err)
		} else if idx, err := vector.New(cfg.VectorDataDir, log); err != nil {
			log.Warnw("failed to open vector index, semantic search disabled", "error", err)
		} else {
			embedder = provider
			vecIndex = idx
		}
	}

	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderAnthropic) && cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	}
	if err != nil {
		log.Warnw("failed to create LLM client, answering with apologies", "error", err)
		llmClient = nil
	}
	if llmClient == nil {
		log.Warnw("no LLM provider configured")
	}

	var synth tts.Synthesizer
	if cfg.TTSEndpoint != "" {
		edge, err := tts.NewEdgeSynthesizer(cfg.TTSEndpoint, cfg.TTSVoice)
		if err != nil {
			log.Warnw("failed to create TTS synthesizer, audio disabled", "error", err)
		} else {
			synth = edge
		}
	}

	sessions := session.NewManager(db, events, log)

	var rec *transcript.Recorder
	if vecIndex != nil {
		rec = transcript.NewRecorder(db, sessions, embedder, vecIndex, events, log)
	} else {
		rec = transcript.NewRecorder(db, sessions, embedder, nil, events, log)
	}

	windowStore := window.NewStore(rec, log)

	var search retriever.Searcher
	if vecIndex != nil {
		search = vecIndex
	}
	contextRetriever := retriever.New(embedder, search, db, cfg.SimilarityThreshold, cfg.RetrievalLimit, log)

	assembler := hero.NewAssembler(
		windowStore,
		contextRetriever,
		llmClient,
		synth,
		events,
		cfg.LLMModel,
		cfg.LLMTimeout,
		cfg.PromptContextLimit,
		log,
	)

	healthHandler := handler.NewHealthHandler(db, natsConn)
	utteranceHandler := handler.NewUtteranceHandler(windowStore, log)
	heroHandler := handler.NewHeroHandler(assembler, log)
	meetingHandler := handler.NewMeetingHandler(db, sessions, llmClient, cfg.LLMModel, log)
	embeddingHandler := handler.NewEmbeddingHandler(rec, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/utterances", utteranceHandler.Store)
		r.Post("/hero/message", heroHandler.Message)

		r.Route("/meetings", func(r chi.Router) {
			r.Post("/start", meetingHandler.Start)
			r.Post("/end", meetingHandler.End)
			r.Get("/", meetingHandler.List)
			r.Get("/by-org", meetingHandler.ListByOrg)

			r.Route("/{roomName}", func(r chi.Router) {
				r.Get("/transcript", meetingHandler.Transcript)
				r.Post("/summary", meetingHandler.Summary)
			})
		})

		r.Post("/embeddings/backfill", embeddingHandler.Backfill)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infow("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Infow("server stopped")
}
