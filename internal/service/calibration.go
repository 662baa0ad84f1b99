package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservoir_controller/internal/models"
	"reservoir_controller/internal/repository"
)

// CalibrationService owns pump calibration records. Calibration is a
// manual, infrequent write: the operator measures delivered volume per
// unit time and records it with a date.
type CalibrationService struct {
	pumps map[string]models.PumpConfig
	repo  repository.CalibrationRepo
	event repository.EventRepo
}

func NewCalibrationService(pumps []models.PumpConfig, repo repository.CalibrationRepo, event repository.EventRepo) *CalibrationService {
	byID := make(map[string]models.PumpConfig, len(pumps))
	for _, p := range pumps {
		byID[p.ID] = p
	}
	return &CalibrationService{pumps: byID, repo: repo, event: event}
}

// Calibrate records a new flow rate for a pump, superseding the
// previous record, and logs the change.
func (s *CalibrationService) Calibrate(ctx context.Context, pumpID string, mlPerSec float64, at time.Time) error {
	if _, ok := s.pumps[pumpID]; !ok {
		return fmt.Errorf("unknown pump %q", pumpID)
	}
	if mlPerSec <= 0 {
		return fmt.Errorf("flow rate must be positive, got %v", mlPerSec)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if err := s.repo.Save(ctx, models.PumpCalibration{
		PumpID:           pumpID,
		FlowRateMLPerSec: mlPerSec,
		CalibratedAt:     at,
	}); err != nil {
		return err
	}

	return s.event.Append(ctx, models.ControllerEvent{
		Type:        models.EventCalibration,
		Description: "Pump " + pumpID + " recalibrated",
		Metadata: map[string]any{
			"pump_id":        pumpID,
			"flow_rate_ml_s": mlPerSec,
			"calibrated_at":  at.UTC(),
		},
	})
}

// Get returns the pump with its current calibration applied, or
// ErrNotCalibrated when no record exists. There is no default flow
// rate, ever.
func (s *CalibrationService) Get(ctx context.Context, pumpID string) (models.Pump, error) {
	cfg, ok := s.pumps[pumpID]
	if !ok {
		return models.Pump{}, fmt.Errorf("unknown pump %q: %w", pumpID, ErrNotCalibrated)
	}
	cur, err := s.repo.Current(ctx, pumpID)
	if err != nil {
		if errors.Is(err, repository.ErrNoCalibration) {
			return models.Pump{}, fmt.Errorf("pump %q: %w", pumpID, ErrNotCalibrated)
		}
		return models.Pump{}, err
	}
	return models.Pump{
		ID:               cfg.ID,
		Name:             cfg.Name,
		Chemical:         cfg.Chemical,
		FlowRateMLPerSec: cur.FlowRateMLPerSec,
		CalibratedAt:     cur.CalibratedAt,
	}, nil
}

// History returns a pump's full calibration audit trail, oldest first.
func (s *CalibrationService) History(ctx context.Context, pumpID string) ([]models.PumpCalibration, error) {
	if _, ok := s.pumps[pumpID]; !ok {
		return nil, fmt.Errorf("unknown pump %q", pumpID)
	}
	return s.repo.History(ctx, pumpID)
}

// VerifyStore reads the current calibrations once at startup. A
// storage failure here is fatal to the caller: the controller must not
// run without being able to tell which pumps are calibrated. An empty
// result is fine; dosing is simply suppressed per pump until an
// operator calibrates.
func (s *CalibrationService) VerifyStore(ctx context.Context) (int, error) {
	current, err := s.repo.CurrentAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read calibration storage: %w", err)
	}
	return len(current), nil
}
