package service

import (
	"context"
	"time"

	"reservoir_controller/internal/actuation"
	"reservoir_controller/internal/logger"
	"reservoir_controller/internal/models"
	"reservoir_controller/internal/repository"
	"reservoir_controller/internal/sensors"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Calibration owns per-pump calibration records.
type Calibration interface {
	Calibrate(ctx context.Context, pumpID string, mlPerSec float64, at time.Time) error
	Get(ctx context.Context, pumpID string) (models.Pump, error)
	History(ctx context.Context, pumpID string) ([]models.PumpCalibration, error)
	VerifyStore(ctx context.Context) (int, error)
}

// Feeding exposes the per-reservoir feeding session lifecycle.
type Feeding interface {
	StartFeeding(ctx context.Context, reservoirID, valveID string) error
	StopFeeding(ctx context.Context, reservoirID string) error
	Active(reservoirID string) bool
	// FeedingActive reports whether any reservoir is feeding; the
	// notification layer suppresses all alerts while true.
	FeedingActive() bool
}

// Dosing evaluates dose requests against the live guards.
type Dosing interface {
	RequestDose(ctx context.Context, reservoirID string, req models.DoseRequest) (models.Action, error)
	// Correct computes per-pump targets for a measured-vs-desired
	// delta and requests each one. An empty result means the value is
	// already within tolerance.
	Correct(ctx context.Context, reservoirID string, current, desired float64) ([]models.Action, error)
}

// Valves exposes named valve actuation and highlighting state.
type Valves interface {
	ToggleValve(ctx context.Context, reservoirID, nameOrID string) (models.Valve, error)
	ActiveFeedValve(reservoirID string) (string, bool)
}

// Monitoring exposes read-only reservoir snapshots for the dashboard.
type Monitoring interface {
	State(ctx context.Context, reservoirID string) (models.ReservoirState, error)
	List(ctx context.Context) ([]models.ReservoirState, error)
}

// Flow exposes the accumulated flow totals.
type Flow interface {
	FlowTotal(sensorID string) float64
	ResetFlowTotal(ctx context.Context, sensorID string) (float64, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error)
}

// Control runs the per-reservoir poll loops until ctx is canceled.
type Control interface {
	Run(ctx context.Context, tick time.Duration)
}

// Notifier delivers operator alerts. Implementations must be safe to
// call from the control loop; the loop never waits on delivery.
type Notifier interface {
	Send(ctx context.Context, subject, message string) error
}

// LogFilter supports history filtering by time range, type and reservoir.
type LogFilter struct {
	From        time.Time // inclusive; zero means no lower bound
	To          time.Time // inclusive; zero means no upper bound
	Type        string    // "", "DOSE", "SUPPRESS", "FEED_START", ...
	ReservoirID string
}

// Options carries the tuning knobs read from config.
type Options struct {
	Reservoirs     []models.ReservoirConfig
	FeedingTimeout time.Duration
	MaxDoseSeconds float64
	SigningKey     string
}

// Service aggregates all sub-services.
type Service struct {
	Authorization
	Calibration
	Feeding
	Dosing
	Valves
	Monitoring
	Flow
	EventLog
	Control
}

// NewService wires the repository layer, sensor cache and actuator
// into concrete services.
func NewService(
	repos *repository.Repository,
	store *sensors.Store,
	totals *sensors.Totalizer,
	act actuation.Actuator,
	notifier Notifier,
	log *logger.Logger,
	opts Options,
) *Service {
	calib := NewCalibrationService(allPumps(opts.Reservoirs), repos.Calibrations, repos.Events)
	res := NewReservoirService(opts.Reservoirs, store, totals, act, calib, repos.Sessions, repos.Events, notifier, log, opts)
	return &Service{
		Authorization: NewAuthService(repos.Auth, opts.SigningKey),
		Calibration:   calib,
		Feeding:       res,
		Dosing:        res,
		Valves:        res,
		Monitoring:    res,
		Flow:          res,
		EventLog:      NewEventLogService(repos.Events),
		Control:       res,
	}
}

func allPumps(reservoirs []models.ReservoirConfig) []models.PumpConfig {
	var out []models.PumpConfig
	for _, r := range reservoirs {
		out = append(out, r.Pumps...)
	}
	return out
}
