// Package store persists transcript records in Postgres via pgx.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IsaacCespedes/BriefingRoom/internal/transcript"
	"github.com/IsaacCespedes/BriefingRoom/internal/webvtt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, interview_id, room_name, status, transcript_text, transcript_webvtt,
	segments, source, started_at, ended_at, duration_seconds, participant_count,
	failure_reason, created_at, updated_at`

// Store is the pgx-backed implementation of transcript.Store.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// GetByInterviewID returns the record for an interview, or (nil, nil) if
// none exists.
func (s *Store) GetByInterviewID(ctx context.Context, interviewID string) (*transcript.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM transcripts WHERE interview_id = $1`,
		interviewID,
	)
	return scanRecord(row)
}

// GetByRoomName returns the record joined to a provider room, or
// (nil, nil) if none exists.
func (s *Store) GetByRoomName(ctx context.Context, roomName string) (*transcript.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM transcripts WHERE room_name = $1`,
		roomName,
	)
	return scanRecord(row)
}

// Create inserts a new record, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, rec *transcript.Record) error {
	rec.ID = uuid.New().String()
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	segments, err := marshalSegments(rec.Segments)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO transcripts (id, interview_id, room_name, status, transcript_text,
			transcript_webvtt, segments, source, started_at, ended_at,
			duration_seconds, participant_count, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		rec.ID, rec.InterviewID, rec.RoomName, string(rec.Status), rec.Text,
		nullStr(rec.RawVTT), segments, nullStr(rec.Source), rec.StartedAt, rec.EndedAt,
		rec.DurationSeconds, rec.ParticipantCount, nullStr(rec.FailureReason),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// Update persists all mutable fields of an existing record.
func (s *Store) Update(ctx context.Context, rec *transcript.Record) error {
	rec.UpdatedAt = time.Now().UTC()

	segments, err := marshalSegments(rec.Segments)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE transcripts
		SET status = $2, transcript_text = $3, transcript_webvtt = $4, segments = $5,
			source = $6, started_at = $7, ended_at = $8, duration_seconds = $9,
			participant_count = $10, failure_reason = $11, updated_at = $12
		WHERE id = $1
	`,
		rec.ID, string(rec.Status), rec.Text, nullStr(rec.RawVTT), segments,
		nullStr(rec.Source), rec.StartedAt, rec.EndedAt, rec.DurationSeconds,
		rec.ParticipantCount, nullStr(rec.FailureReason), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update transcript %s: %w", rec.ID, transcript.ErrNotFound)
	}
	return nil
}

func scanRecord(row pgx.Row) (*transcript.Record, error) {
	var (
		rec              transcript.Record
		status           string
		rawVTT, source   *string
		failureReason    *string
		segments         []byte
	)
	err := row.Scan(
		&rec.ID, &rec.InterviewID, &rec.RoomName, &status, &rec.Text, &rawVTT,
		&segments, &source, &rec.StartedAt, &rec.EndedAt, &rec.DurationSeconds,
		&rec.ParticipantCount, &failureReason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	rec.Status = transcript.Status(status)
	if rawVTT != nil {
		rec.RawVTT = *rawVTT
	}
	if source != nil {
		rec.Source = *source
	}
	if failureReason != nil {
		rec.FailureReason = *failureReason
	}
	if segments != nil {
		if err := json.Unmarshal(segments, &rec.Segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	}
	return &rec, nil
}

// marshalSegments encodes segments as JSONB, preserving nil as NULL so
// "no segments parsed yet" round-trips distinctly from an empty list.
func marshalSegments(segments []webvtt.Segment) ([]byte, error) {
	if segments == nil {
		return nil, nil
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("encode segments: %w", err)
	}
	return data, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
