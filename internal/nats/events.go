package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

const (
	// StreamName is the name of the meeting events stream.
	StreamName = "MEETINGS"

	// SubjectPrefix is the prefix for all meeting event subjects.
	SubjectPrefix = "meeting"
)

// Publisher publishes meeting events to JetStream, fire-and-forget.
// A nil Publisher, or one created over a nil client, discards everything;
// that is the degraded mode when NATS is not configured.
type Publisher struct {
	client *Client
	log    *logger.Logger
}

// NewPublisher creates a meeting event publisher.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// EnsureStream ensures the meeting events stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}

	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Meeting lifecycle, utterance and answer events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a meeting event.
func EventSubject(orgName, roomName string, kind model.EventKind) string {
	org := subjectToken(orgName)
	if org == "" {
		org = "none"
	}
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, org, subjectToken(roomName), kind)
}

// subjectToken makes a value safe for use inside a NATS subject.
func subjectToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

// Publish publishes one event. Failures are logged and swallowed; the
// event bus is never the reason a request fails.
func (p *Publisher) Publish(ctx context.Context, event *model.MeetingEvent) {
	if p == nil || p.client == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warnw("failed to marshal meeting event", "kind", event.Kind, "error", err)
		return
	}

	subject := EventSubject(event.OrgName, event.RoomName, event.Kind)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.log.Warnw("failed to publish meeting event",
			"kind", event.Kind, "subject", subject, "error", err)
	}
}
