// Package vector provides the similarity-search index over utterance
// embeddings, scoped per organization.
package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

// Hit is a single semantic-search result.
type Hit struct {
	TranscriptID string
	Message      string
	Speaker      model.Speaker
	RoomName     string
	Timestamp    time.Time
	Similarity   float64
}

// Index wraps chromem-go with per-organization collections and disk
// persistence.
type Index struct {
	mu  sync.RWMutex
	db  *chromem.DB
	log *logger.Logger
}

// New creates (or opens) the persistent vector index at dataDir/vectorindex/.
func New(dataDir string, log *logger.Logger) (*Index, error) {
	dir := filepath.Join(dataDir, "vectorindex")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create vector index dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	return &Index{db: db, log: log}, nil
}

func collectionName(orgName string) string {
	return fmt.Sprintf("org_%s_transcripts", strings.ToLower(orgName))
}

// getOrCreateCollection returns (or creates) the per-org collection.
// Documents always carry precomputed embeddings, so no embedding func is set.
func (i *Index) getOrCreateCollection(orgName string) *chromem.Collection {
	name := collectionName(orgName)
	col := i.db.GetCollection(name, nil)
	if col == nil {
		var err error
		col, err = i.db.CreateCollection(name, nil, nil)
		if err != nil {
			i.log.Errorw("failed to create vector collection", "org_name", orgName, "error", err)
			return nil
		}
	}
	return col
}

// AddUtterance indexes one utterance with its precomputed embedding.
func (i *Index) AddUtterance(ctx context.Context, u *model.Utterance) error {
	if len(u.Embedding) == 0 {
		return fmt.Errorf("vector: utterance %s has no embedding", u.ID)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	col := i.getOrCreateCollection(u.OrgName)
	if col == nil {
		return fmt.Errorf("vector: nil collection for org %q", u.OrgName)
	}

	doc := chromem.Document{
		ID:        u.ID,
		Content:   u.Message,
		Embedding: u.Embedding,
		Metadata: map[string]string{
			"speaker":   string(u.Speaker),
			"room_name": u.RoomName,
			"timestamp": u.Timestamp.UTC().Format(time.RFC3339),
		},
	}
	return col.AddDocument(ctx, doc)
}

// SearchSimilar returns up to k utterances most similar to the query
// embedding within an organization, ordered by descending similarity.
func (i *Index) SearchSimilar(ctx context.Context, orgName string, queryEmbedding []float32, k int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	col := i.db.GetCollection(collectionName(orgName), nil)
	if col == nil {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.QueryEmbedding(ctx, queryEmbedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		ts, _ := time.Parse(time.RFC3339, r.Metadata["timestamp"])
		hits = append(hits, Hit{
			TranscriptID: r.ID,
			Message:      r.Content,
			Speaker:      model.Speaker(r.Metadata["speaker"]),
			RoomName:     r.Metadata["room_name"],
			Timestamp:    ts,
			Similarity:   float64(r.Similarity),
		})
	}
	return hits, nil
}
