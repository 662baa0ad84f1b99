package actuation

import (
	"context"
	"time"

	"reservoir_controller/internal/logger"
)

// Actuator is the hardware output boundary. Both calls are
// fire-and-forget: the remote end owns the run timer and must guarantee
// a fail-safe off if this process dies mid-dose. Callers bound each
// call with a context timeout and never block the control loop on it.
type Actuator interface {
	RunPump(ctx context.Context, reservoirID, pumpID string, duration time.Duration) error
	SetValve(ctx context.Context, reservoirID, valveID string, open bool) error
}

// LogActuator stands in when no broker is configured: it records every
// command without touching hardware. Useful for bench runs and tests.
type LogActuator struct {
	log *logger.Logger
}

func NewLogActuator(log *logger.Logger) *LogActuator {
	return &LogActuator{log: log}
}

func (a *LogActuator) RunPump(_ context.Context, reservoirID, pumpID string, duration time.Duration) error {
	a.log.Infow("actuate_pump_dry_run", "reservoir", reservoirID, "pump", pumpID, "duration", duration)
	return nil
}

func (a *LogActuator) SetValve(_ context.Context, reservoirID, valveID string, open bool) error {
	a.log.Infow("actuate_valve_dry_run", "reservoir", reservoirID, "valve", valveID, "open", open)
	return nil
}
