package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reservoir_controller/internal/models"
)

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

var _ SessionRepo = (*SessionSQLite)(nil)

const (
	upsertSessionSQL = `
		INSERT INTO feeding_sessions (reservoir_id, valve_id, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(reservoir_id) DO UPDATE SET
			valve_id=excluded.valve_id,
			started_at=excluded.started_at
	`
	selectSessionSQL = `
		SELECT reservoir_id, valve_id, started_at
		FROM feeding_sessions WHERE reservoir_id = ?
	`
	deleteSessionSQL = `DELETE FROM feeding_sessions WHERE reservoir_id = ?`
)

// Save upserts the active session row for a reservoir. Only active
// sessions are stored; an ended session is removed with Clear.
func (r *SessionSQLite) Save(ctx context.Context, s models.FeedingSession) error {
	if !s.Active {
		return r.Clear(ctx, s.ReservoirID)
	}
	_, err := r.db.ExecContext(ctx, upsertSessionSQL, s.ReservoirID, s.ValveID, s.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("save feeding session for %q: %w", s.ReservoirID, err)
	}
	return nil
}

// Load returns the persisted session for a reservoir. No row, or a row
// whose timestamp cannot be read back, yields an idle session: the
// machine fails open toward allowing pH correction, never toward
// suppressing it indefinitely.
func (r *SessionSQLite) Load(ctx context.Context, reservoirID string) (models.FeedingSession, error) {
	idle := models.FeedingSession{ReservoirID: reservoirID}

	row := r.db.QueryRowContext(ctx, selectSessionSQL, reservoirID)
	var s models.FeedingSession
	if err := row.Scan(&s.ReservoirID, &s.ValveID, &s.StartedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idle, nil
		}
		// Corrupted row: report idle rather than failing the loop.
		return idle, nil
	}
	if s.StartedAt.IsZero() {
		return idle, nil
	}
	s.Active = true
	s.StartedAt = s.StartedAt.UTC()
	return s, nil
}

func (r *SessionSQLite) Clear(ctx context.Context, reservoirID string) error {
	if _, err := r.db.ExecContext(ctx, deleteSessionSQL, reservoirID); err != nil {
		return fmt.Errorf("clear feeding session for %q: %w", reservoirID, err)
	}
	return nil
}
