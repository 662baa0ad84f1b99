package repository

import (
	"context"
	"database/sql"
	"time"

	"reservoir_controller/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// CalibrationRepo stores versioned pump calibration records. Save
// supersedes the current record instead of overwriting it.
type CalibrationRepo interface {
	Save(ctx context.Context, c models.PumpCalibration) error
	Current(ctx context.Context, pumpID string) (models.PumpCalibration, error)
	CurrentAll(ctx context.Context) ([]models.PumpCalibration, error)
	History(ctx context.Context, pumpID string) ([]models.PumpCalibration, error)
}

// SessionRepo persists the per-reservoir feeding session so a restart
// can recompute the remaining timeout from StartedAt.
type SessionRepo interface {
	Save(ctx context.Context, s models.FeedingSession) error
	Load(ctx context.Context, reservoirID string) (models.FeedingSession, error)
	Clear(ctx context.Context, reservoirID string) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.ControllerEvent) error
	List(ctx context.Context, f EventFilter) ([]models.ControllerEvent, error)
}

// EventFilter narrows event queries. Zero fields mean no bound.
type EventFilter struct {
	From        time.Time
	To          time.Time
	Type        string
	ReservoirID string
}

type Repository struct {
	Calibrations CalibrationRepo
	Sessions     SessionRepo
	Events       EventRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Calibrations: NewCalibrationSQLite(db),
		Sessions:     NewSessionSQLite(db),
		Events:       NewEventSQLite(db),
		Auth:         NewUserRepository(db),
	}
}
