package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reservoir_controller/internal/models"
)

// ErrNoCalibration is returned when a pump has no current calibration
// record. Callers must treat it as a hard suppression of dosing.
var ErrNoCalibration = errors.New("no calibration record")

type CalibrationSQLite struct {
	db *sql.DB
}

func NewCalibrationSQLite(db *sql.DB) *CalibrationSQLite {
	return &CalibrationSQLite{db: db}
}

var _ CalibrationRepo = (*CalibrationSQLite)(nil)

const (
	supersedeCalibrationSQL = `
		UPDATE pump_calibrations SET superseded_at = ?
		WHERE pump_id = ? AND superseded_at IS NULL
	`
	insertCalibrationSQL = `
		INSERT INTO pump_calibrations (pump_id, flow_rate_ml_s, calibrated_at, superseded_at)
		VALUES (?, ?, ?, NULL)
	`
	selectCurrentCalibrationSQL = `
		SELECT id, pump_id, flow_rate_ml_s, calibrated_at, superseded_at
		FROM pump_calibrations WHERE pump_id = ? AND superseded_at IS NULL
	`
	selectCurrentAllSQL = `
		SELECT id, pump_id, flow_rate_ml_s, calibrated_at, superseded_at
		FROM pump_calibrations WHERE superseded_at IS NULL ORDER BY pump_id ASC
	`
	selectHistorySQL = `
		SELECT id, pump_id, flow_rate_ml_s, calibrated_at, superseded_at
		FROM pump_calibrations WHERE pump_id = ? ORDER BY calibrated_at ASC, id ASC
	`
)

// Save marks the pump's current record superseded and inserts the new
// one, in a single transaction so there is never more than one current
// record per pump.
func (r *CalibrationSQLite) Save(ctx context.Context, c models.PumpCalibration) error {
	now := time.Now().UTC()
	at := c.CalibratedAt
	if at.IsZero() {
		at = now
	} else {
		at = at.UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin calibration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, supersedeCalibrationSQL, now, c.PumpID); err != nil {
		return fmt.Errorf("supersede calibration for %q: %w", c.PumpID, err)
	}
	if _, err := tx.ExecContext(ctx, insertCalibrationSQL, c.PumpID, c.FlowRateMLPerSec, at); err != nil {
		return fmt.Errorf("insert calibration for %q: %w", c.PumpID, err)
	}
	return tx.Commit()
}

// Current returns the active record for a pump, or ErrNoCalibration.
func (r *CalibrationSQLite) Current(ctx context.Context, pumpID string) (models.PumpCalibration, error) {
	row := r.db.QueryRowContext(ctx, selectCurrentCalibrationSQL, pumpID)
	c, err := scanCalibration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PumpCalibration{}, fmt.Errorf("pump %q: %w", pumpID, ErrNoCalibration)
		}
		return models.PumpCalibration{}, fmt.Errorf("select calibration for %q: %w", pumpID, err)
	}
	return c, nil
}

// CurrentAll returns the active record for every calibrated pump.
func (r *CalibrationSQLite) CurrentAll(ctx context.Context) ([]models.PumpCalibration, error) {
	rows, err := r.db.QueryContext(ctx, selectCurrentAllSQL)
	if err != nil {
		return nil, fmt.Errorf("select current calibrations: %w", err)
	}
	defer rows.Close()
	return collectCalibrations(rows)
}

// History returns every record for a pump, oldest first.
func (r *CalibrationSQLite) History(ctx context.Context, pumpID string) ([]models.PumpCalibration, error) {
	rows, err := r.db.QueryContext(ctx, selectHistorySQL, pumpID)
	if err != nil {
		return nil, fmt.Errorf("select calibration history for %q: %w", pumpID, err)
	}
	defer rows.Close()
	return collectCalibrations(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalibration(row rowScanner) (models.PumpCalibration, error) {
	var (
		c          models.PumpCalibration
		superseded sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.PumpID, &c.FlowRateMLPerSec, &c.CalibratedAt, &superseded); err != nil {
		return models.PumpCalibration{}, err
	}
	c.CalibratedAt = c.CalibratedAt.UTC()
	if superseded.Valid {
		t := superseded.Time.UTC()
		c.SupersededAt = &t
	}
	return c, nil
}

func collectCalibrations(rows *sql.Rows) ([]models.PumpCalibration, error) {
	out := make([]models.PumpCalibration, 0, 8)
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
