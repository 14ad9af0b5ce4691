// Package transcript persists utterances durably and keeps the similarity
// index fed with embeddings. Everything here is best-effort: the in-memory
// window and the user-facing response never wait on, or fail because of,
// this package.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hero-meeting/platform/internal/embedding"
	"github.com/hero-meeting/platform/internal/model"
	natsclient "github.com/hero-meeting/platform/internal/nats"
	"github.com/hero-meeting/platform/internal/session"
	"github.com/hero-meeting/platform/pkg/logger"
	"github.com/hero-meeting/platform/pkg/metrics"
)

// Store is the durable-store surface the recorder needs.
type Store interface {
	InsertTranscript(ctx context.Context, u *model.Utterance) error
	MarkEmbedded(ctx context.Context, transcriptID string) error
	ListUnembedded(ctx context.Context, orgName string, limit int) ([]model.Utterance, error)
}

// SessionResolver maps a room to its active durable session.
type SessionResolver interface {
	ResolveActive(ctx context.Context, roomName, orgName string) (string, error)
}

// Index receives embedded utterances for similarity search.
type Index interface {
	AddUtterance(ctx context.Context, u *model.Utterance) error
}

// Recorder is the target of the window store's fire-and-forget mirroring.
// It reconciles each utterance to the latest session for its room, appends
// the durable row, publishes the stored event, and indexes an embedding.
type Recorder struct {
	store    Store
	sessions SessionResolver
	embedder embedding.Provider // nil when embeddings are unconfigured
	index    Index              // nil when the vector index is unconfigured
	events   *natsclient.Publisher
	log      *logger.Logger
}

// NewRecorder creates a transcript recorder. embedder and index may be nil;
// stored utterances then simply stay unsearchable until backfilled.
func NewRecorder(store Store, sessions SessionResolver, embedder embedding.Provider, index Index, events *natsclient.Publisher, log *logger.Logger) *Recorder {
	return &Recorder{
		store:    store,
		sessions: sessions,
		embedder: embedder,
		index:    index,
		events:   events,
		log:      log,
	}
}

// Record persists one utterance. All failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, u *model.Utterance) {
	meetingID, err := r.sessions.ResolveActive(ctx, u.RoomName, u.OrgName)
	if err != nil {
		if errors.Is(err, session.ErrSessionCreate) {
			r.log.Warnw("continuing without persistence", "room_name", u.RoomName, "error", err)
		} else {
			r.log.Errorw("failed to resolve session for transcript", "room_name", u.RoomName, "error", err)
		}
		return
	}

	u.MeetingID = meetingID
	if err := r.store.InsertTranscript(ctx, u); err != nil {
		r.log.Errorw("failed to save transcript",
			"room_name", u.RoomName, "transcript_id", u.ID, "error", err)
		return
	}

	r.log.Debugw("transcript saved",
		"room_name", u.RoomName, "transcript_id", u.ID, "speaker", u.Speaker)

	r.events.Publish(ctx, &model.MeetingEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Kind:      model.EventUtteranceStored,
		RoomName:  u.RoomName,
		OrgName:   u.OrgName,
		MeetingID: meetingID,
		Speaker:   u.Speaker,
		Message:   u.Message,
		CreatedAt: time.Now(),
	})

	if err := r.embedAndIndex(ctx, u); err != nil {
		r.log.Warnw("failed to embed transcript",
			"transcript_id", u.ID, "error", err)
	}
}

// embedAndIndex attaches an embedding to one stored utterance and indexes it.
func (r *Recorder) embedAndIndex(ctx context.Context, u *model.Utterance) error {
	if r.embedder == nil || r.index == nil || u.OrgName == "" {
		return nil
	}

	vec, err := r.embedder.Embed(ctx, u.Message)
	if err != nil {
		metrics.EmbeddingsGenerated.WithLabelValues("error").Inc()
		return fmt.Errorf("generate embedding: %w", err)
	}

	u.Embedding = vec
	if err := r.index.AddUtterance(ctx, u); err != nil {
		metrics.EmbeddingsGenerated.WithLabelValues("error").Inc()
		return fmt.Errorf("index embedding: %w", err)
	}

	if err := r.store.MarkEmbedded(ctx, u.ID); err != nil {
		return fmt.Errorf("mark embedded: %w", err)
	}

	metrics.EmbeddingsGenerated.WithLabelValues("ok").Inc()
	return nil
}

// Backfill embeds an organization's stored transcripts that are not yet
// searchable, up to batchSize of them, and returns how many succeeded.
func (r *Recorder) Backfill(ctx context.Context, orgName string, batchSize int) (int, error) {
	if r.embedder == nil || r.index == nil {
		return 0, errors.New("embeddings are not configured")
	}

	utterances, err := r.store.ListUnembedded(ctx, orgName, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unembedded transcripts: %w", err)
	}

	var embedded int
	for idx := range utterances {
		u := &utterances[idx]
		if err := r.embedAndIndex(ctx, u); err != nil {
			r.log.Warnw("backfill: failed to embed transcript",
				"transcript_id", u.ID, "error", err)
			continue
		}
		embedded++
	}

	r.log.Infow("embedding backfill finished",
		"org_name", orgName, "embedded", embedded, "candidates", len(utterances))
	return embedded, nil
}
