// Package retriever assembles past-meeting context for a query: semantic
// similarity search when embeddings are available, recency-based fallback
// when they are not.
package retriever

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hero-meeting/platform/internal/embedding"
	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/internal/vector"
	"github.com/hero-meeting/platform/pkg/logger"
	"github.com/hero-meeting/platform/pkg/metrics"
)

const (
	// DefaultThreshold is the minimum similarity a hit must reach; the
	// boundary is inclusive.
	DefaultThreshold = 0.5

	// DefaultLimit caps how many similarity hits are returned.
	DefaultLimit = 5

	// fallbackSessions is how many recent sessions the fallback considers.
	fallbackSessions = 5

	// fallbackUtterances is how many utterances the fallback pulls per
	// session, earliest-persisted first.
	fallbackUtterances = 5
)

// Searcher runs similarity searches over indexed utterances.
type Searcher interface {
	SearchSimilar(ctx context.Context, orgName string, queryEmbedding []float32, k int) ([]vector.Hit, error)
}

// MeetingReader is the durable-store surface the fallback path needs.
type MeetingReader interface {
	ListMeetingsByOrg(ctx context.Context, orgName string, limit int) ([]model.Meeting, error)
	TranscriptsByMeeting(ctx context.Context, meetingID string, limit int) ([]model.Utterance, error)
}

// Retriever produces bounded textual context from prior sessions.
type Retriever struct {
	embedder  embedding.Provider // nil means similarity search is unavailable
	search    Searcher
	meetings  MeetingReader
	threshold float64
	limit     int
	log       *logger.Logger
}

// New creates a retriever. embedder and search may be nil; every request
// then takes the fallback path.
func New(embedder embedding.Provider, search Searcher, meetings MeetingReader, threshold float64, limit int, log *logger.Logger) *Retriever {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Retriever{
		embedder:  embedder,
		search:    search,
		meetings:  meetings,
		threshold: threshold,
		limit:     limit,
		log:       log,
	}
}

// RelevantContext returns formatted context from past sessions for an
// organization and query. It degrades deterministically: similarity search
// first, recent sessions when search is unavailable, errored, or empty, and
// an empty string when the organization has no history at all. It never
// returns an error; retrieval must not be the reason a request fails.
func (r *Retriever) RelevantContext(ctx context.Context, orgName, query string, limit int) string {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}
	orgName = strings.ToLower(orgName)

	if r.embedder == nil || r.search == nil {
		return r.fallbackContext(ctx, orgName, limit)
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warnw("query embedding failed, using fallback context",
			"org_name", orgName, "error", err)
		return r.fallbackContext(ctx, orgName, limit)
	}

	hits, err := r.search.SearchSimilar(ctx, orgName, queryVec, limit)
	if err != nil {
		r.log.Warnw("similarity search failed, using fallback context",
			"org_name", orgName, "error", err)
		return r.fallbackContext(ctx, orgName, limit)
	}

	relevant := hits[:0]
	for _, h := range hits {
		if h.Similarity >= r.threshold {
			relevant = append(relevant, h)
		}
	}
	if len(relevant) == 0 {
		return r.fallbackContext(ctx, orgName, limit)
	}

	metrics.RetrievalPath.WithLabelValues("semantic").Inc()
	return formatHits(relevant)
}

// formatHits renders similarity hits as a numbered list. The "X% relevant"
// cue is part of the prompt contract; the model uses it to calibrate trust.
func formatHits(hits []vector.Hit) string {
	var b strings.Builder
	b.WriteString("**Relevant Context from Past Meetings:**\n")
	for i, h := range hits {
		percent := int(math.Round(h.Similarity * 100))
		fmt.Fprintf(&b, "%d. [%d%% relevant] %s: %q (Room: %s, Date: %s)\n",
			i+1, percent, h.Speaker.Label(), h.Message,
			h.RoomName, h.Timestamp.Format("2006-01-02"))
	}
	return b.String()
}

// fallbackContext returns recency-based context: the organization's most
// recent sessions with a few of each session's earliest utterances, grouped
// by session date.
func (r *Retriever) fallbackContext(ctx context.Context, orgName string, limit int) string {
	if orgName == "" {
		return ""
	}

	meetings, err := r.meetings.ListMeetingsByOrg(ctx, orgName, fallbackSessions)
	if err != nil {
		r.log.Warnw("fallback context lookup failed", "org_name", orgName, "error", err)
		metrics.RetrievalPath.WithLabelValues("empty").Inc()
		return ""
	}
	if len(meetings) == 0 {
		metrics.RetrievalPath.WithLabelValues("empty").Inc()
		return ""
	}

	take := limit
	if take > 2 {
		take = 2
	}
	if take > len(meetings) {
		take = len(meetings)
	}

	var pieces []string
	for _, meeting := range meetings[:take] {
		transcripts, err := r.meetings.TranscriptsByMeeting(ctx, meeting.ID, fallbackUtterances)
		if err != nil {
			r.log.Warnw("fallback: failed to fetch transcripts",
				"meeting_id", meeting.ID, "error", err)
			continue
		}
		if len(transcripts) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "**Previous Meeting (%s, Room: %s)**\n",
			meeting.StartedAt.Format("2006-01-02"), meeting.RoomName)
		for _, t := range transcripts {
			fmt.Fprintf(&b, "- %s: %q\n", t.Speaker.Label(), t.Message)
		}
		pieces = append(pieces, b.String())
	}

	if len(pieces) == 0 {
		metrics.RetrievalPath.WithLabelValues("empty").Inc()
		return ""
	}

	metrics.RetrievalPath.WithLabelValues("fallback").Inc()
	return "**Context from Previous Meetings:**\n\n" + strings.Join(pieces, "\n")
}
