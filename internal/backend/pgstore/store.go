// Package pgstore is a Postgres implementation of the record store for
// deployments without an external backend.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"hiring_assistant_backend/internal/hiring/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations holds the goose migrations of the store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that holds the files.
const MigrationsDir = "migrations"

// Store implements ports.BackendStore on Postgres.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates a store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// CreateCandidate inserts the candidate and links it to its session record.
// A second create for the same session returns the existing id.
func (s *Store) CreateCandidate(ctx context.Context, fields ports.CandidateFields) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	var fitScore float64
	if fields.FitScore != nil {
		fitScore = *fields.FitScore
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO hiring_candidates (
			id, session_id, job_id, company_id, full_name, email, phone_number,
			age, fit_score, profile_summary, report_path, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = hiring_candidates.updated_at
		RETURNING id`,
		uuid.New(), fields.SessionID, fields.JobID, fields.CompanyID, fields.FullName, fields.Email, fields.PhoneNumber,
		fields.Age, fitScore, fields.ProfileSummary, fields.ReportPath, fields.Status, now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert candidate: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO hiring_sessions (id, candidate_id, full_name, email, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			candidate_id = EXCLUDED.candidate_id,
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			updated_at = EXCLUDED.updated_at`,
		fields.SessionID, id, fields.FullName, fields.Email, fields.PhoneNumber, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to link candidate to session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit candidate: %w", err)
	}
	return id.String(), nil
}

// PatchCandidate updates the set fields of a candidate.
func (s *Store) PatchCandidate(ctx context.Context, candidateID string, fields ports.CandidateFields) error {
	id, err := uuid.Parse(candidateID)
	if err != nil {
		return fmt.Errorf("invalid candidate id %q: %w", candidateID, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE hiring_candidates SET
			full_name = COALESCE(NULLIF($2, ''), full_name),
			email = COALESCE(NULLIF($3, ''), email),
			phone_number = COALESCE(NULLIF($4, ''), phone_number),
			age = COALESCE($5, age),
			fit_score = COALESCE($6, fit_score),
			profile_summary = COALESCE($7, profile_summary),
			report_path = COALESCE($8, report_path),
			status = COALESCE(NULLIF($9, ''), status),
			updated_at = $10
		WHERE id = $1`,
		id, fields.FullName, fields.Email, fields.PhoneNumber, fields.Age,
		fields.FitScore, fields.ProfileSummary, fields.ReportPath, fields.Status, s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to patch candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("candidate %s not found", candidateID)
	}
	return nil
}

// GetSession returns the stored session record, or nil when none exists.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*ports.SessionRecord, error) {
	var rec ports.SessionRecord
	var candidateID *uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id, candidate_id, full_name, email, phone_number, status
		FROM hiring_sessions WHERE id = $1`, sessionID,
	).Scan(&rec.ID, &candidateID, &rec.FullName, &rec.Email, &rec.PhoneNumber, &rec.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if candidateID != nil {
		rec.CandidateID = candidateID.String()
	}
	return &rec, nil
}

// UpdateSession upserts the status fields of a session record.
func (s *Store) UpdateSession(ctx context.Context, sessionID string, update ports.SessionUpdate) error {
	var candidateID *uuid.UUID
	if update.CandidateID != "" {
		id, err := uuid.Parse(update.CandidateID)
		if err != nil {
			return fmt.Errorf("invalid candidate id %q: %w", update.CandidateID, err)
		}
		candidateID = &id
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO hiring_sessions (id, candidate_id, status, stage, reason, concluded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET
			candidate_id = COALESCE(EXCLUDED.candidate_id, hiring_sessions.candidate_id),
			status = COALESCE(NULLIF(EXCLUDED.status, ''), hiring_sessions.status),
			stage = COALESCE(NULLIF(EXCLUDED.stage, ''), hiring_sessions.stage),
			reason = COALESCE(NULLIF(EXCLUDED.reason, ''), hiring_sessions.reason),
			concluded_at = COALESCE(EXCLUDED.concluded_at, hiring_sessions.concluded_at),
			updated_at = EXCLUDED.updated_at`,
		sessionID, candidateID, update.Status, update.Stage, update.Reason, update.ConcludedAt, s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// PostMessage appends a message to the session's message log.
func (s *Store) PostMessage(ctx context.Context, sessionID string, msg ports.Message) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hiring_session_messages (id, session_id, text, creator, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), sessionID, msg.Text, msg.Creator, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

// DeleteMessagesBefore removes session messages older than before and
// returns how many were deleted.
func (s *Store) DeleteMessagesBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hiring_session_messages WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ ports.BackendStore = (*Store)(nil)
