// Package store provides the durable meeting and transcript store backed
// by SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hero-meeting/platform/internal/model"
	"github.com/hero-meeting/platform/pkg/logger"
)

// Store provides durable persistence for meetings, transcripts and summaries.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// New opens the database at dbPath and initializes the schema.
func New(ctx context.Context, dbPath string, log *logger.Logger) (*Store, error) {
	// WAL mode allows concurrent readers alongside the single writer.
	// modernc.org/sqlite takes pragmas as _pragma=name(value) parameters.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite tolerates one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id                TEXT PRIMARY KEY,
		room_name         TEXT NOT NULL,
		org_name          TEXT NOT NULL DEFAULT '',
		started_at        INTEGER NOT NULL,
		ended_at          INTEGER,
		duration_minutes  INTEGER,
		participant_count INTEGER NOT NULL DEFAULT 0,
		metadata          TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_room_started
		ON meetings (room_name, started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_meetings_org
		ON meetings (org_name);

	CREATE TABLE IF NOT EXISTS transcripts (
		id         TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL,
		room_name  TEXT NOT NULL,
		org_name   TEXT NOT NULL DEFAULT '',
		speaker    TEXT NOT NULL,
		speaker_id TEXT NOT NULL DEFAULT '',
		message    TEXT NOT NULL,
		timestamp  INTEGER NOT NULL,
		embedded   INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id)
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_meeting
		ON transcripts (meeting_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_transcripts_room
		ON transcripts (room_name);
	CREATE INDEX IF NOT EXISTS idx_transcripts_org_embedded
		ON transcripts (org_name, embedded);

	CREATE TABLE IF NOT EXISTS meeting_summaries (
		id         TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL,
		room_name  TEXT NOT NULL,
		summary    TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id)
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// CreateMeeting inserts a new meeting session row.
// The organization name is stored lowercase.
func (s *Store) CreateMeeting(ctx context.Context, roomName, orgName string, metadata map[string]string) (*model.Meeting, error) {
	meta := metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	m := &model.Meeting{
		ID:        uuid.Must(uuid.NewV7()).String(),
		RoomName:  roomName,
		OrgName:   strings.ToLower(orgName),
		StartedAt: time.Now().UTC(),
		Metadata:  meta,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, room_name, org_name, started_at, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.RoomName, m.OrgName, m.StartedAt.Unix(), string(metaJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert meeting: %w", err)
	}

	return m, nil
}

// LatestMeetingByRoom returns the most recently started meeting for a room,
// or nil when the room has no meetings.
func (s *Store) LatestMeetingByRoom(ctx context.Context, roomName string) (*model.Meeting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_name, org_name, started_at, ended_at, duration_minutes, participant_count, metadata
		FROM meetings
		WHERE room_name = ?
		ORDER BY started_at DESC
		LIMIT 1`,
		roomName,
	)

	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest meeting: %w", err)
	}
	return m, nil
}

// MeetingByID returns one meeting, or nil when not found.
func (s *Store) MeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_name, org_name, started_at, ended_at, duration_minutes, participant_count, metadata
		FROM meetings
		WHERE id = ?`,
		id,
	)

	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query meeting: %w", err)
	}
	return m, nil
}

// EndMeeting records the end time and duration for a meeting.
func (s *Store) EndMeeting(ctx context.Context, id string, endedAt time.Time, durationMinutes int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET ended_at = ?, duration_minutes = ? WHERE id = ?`,
		endedAt.Unix(), durationMinutes, id,
	)
	if err != nil {
		return fmt.Errorf("failed to end meeting: %w", err)
	}
	return nil
}

// ListMeetings returns recent meetings across all organizations.
func (s *Store) ListMeetings(ctx context.Context, limit int) ([]model.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_name, org_name, started_at, ended_at, duration_minutes, participant_count, metadata
		FROM meetings
		ORDER BY started_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// ListMeetingsByOrg returns an organization's meetings, most recent first.
// The organization name is lowercased to match how it was written.
func (s *Store) ListMeetingsByOrg(ctx context.Context, orgName string, limit int) ([]model.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_name, org_name, started_at, ended_at, duration_minutes, participant_count, metadata
		FROM meetings
		WHERE org_name = ?
		ORDER BY started_at DESC
		LIMIT ?`,
		strings.ToLower(orgName), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings by org: %w", err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// InsertTranscript appends one utterance row. The utterance must carry its
// meeting id; the organization name is stored lowercase.
func (s *Store) InsertTranscript(ctx context.Context, u *model.Utterance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, meeting_id, room_name, org_name, speaker, speaker_id, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.MeetingID, u.RoomName, strings.ToLower(u.OrgName),
		string(u.Speaker), u.SpeakerID, strings.TrimSpace(u.Message), u.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}
	return nil
}

// TranscriptsByMeeting returns a meeting's utterances, earliest first.
func (s *Store) TranscriptsByMeeting(ctx context.Context, meetingID string, limit int) ([]model.Utterance, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, room_name, org_name, speaker, speaker_id, message, timestamp
		FROM transcripts
		WHERE meeting_id = ?
		ORDER BY timestamp ASC
		LIMIT ?`,
		meetingID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	return collectUtterances(rows)
}

// TranscriptsByRoom returns a room's utterances across sessions, earliest first.
func (s *Store) TranscriptsByRoom(ctx context.Context, roomName string, limit int) ([]model.Utterance, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, room_name, org_name, speaker, speaker_id, message, timestamp
		FROM transcripts
		WHERE room_name = ?
		ORDER BY timestamp ASC
		LIMIT ?`,
		roomName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts by room: %w", err)
	}
	defer rows.Close()

	return collectUtterances(rows)
}

// ListUnembedded returns an organization's transcripts that have no
// embedding yet.
func (s *Store) ListUnembedded(ctx context.Context, orgName string, limit int) ([]model.Utterance, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, room_name, org_name, speaker, speaker_id, message, timestamp
		FROM transcripts
		WHERE org_name = ? AND embedded = 0
		ORDER BY timestamp ASC
		LIMIT ?`,
		strings.ToLower(orgName), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query unembedded transcripts: %w", err)
	}
	defer rows.Close()

	return collectUtterances(rows)
}

// MarkEmbedded flags a transcript as indexed for similarity search.
func (s *Store) MarkEmbedded(ctx context.Context, transcriptID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transcripts SET embedded = 1 WHERE id = ?`,
		transcriptID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark transcript embedded: %w", err)
	}
	return nil
}

// SaveSummary persists an LLM-generated meeting summary.
func (s *Store) SaveSummary(ctx context.Context, meetingID, roomName, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meeting_summaries (id, meeting_id, room_name, summary, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.Must(uuid.NewV7()).String(), meetingID, roomName, summary, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*model.Meeting, error) {
	var (
		m         model.Meeting
		startedAt int64
		endedAt   sql.NullInt64
		duration  sql.NullInt64
		metaJSON  string
	)

	err := row.Scan(&m.ID, &m.RoomName, &m.OrgName, &startedAt, &endedAt, &duration, &m.ParticipantCount, &metaJSON)
	if err != nil {
		return nil, err
	}

	m.StartedAt = time.Unix(startedAt, 0).UTC()
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0).UTC()
		m.EndedAt = &t
	}
	if duration.Valid {
		m.DurationMinutes = int(duration.Int64)
	}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
	}

	return &m, nil
}

func collectMeetings(rows *sql.Rows) ([]model.Meeting, error) {
	var meetings []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

func collectUtterances(rows *sql.Rows) ([]model.Utterance, error) {
	var utterances []model.Utterance
	for rows.Next() {
		var (
			u       model.Utterance
			speaker string
			ts      int64
		)
		err := rows.Scan(&u.ID, &u.MeetingID, &u.RoomName, &u.OrgName, &speaker, &u.SpeakerID, &u.Message, &ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		u.Speaker = model.Speaker(speaker)
		u.Timestamp = time.Unix(ts, 0).UTC()
		utterances = append(utterances, u)
	}
	return utterances, rows.Err()
}
