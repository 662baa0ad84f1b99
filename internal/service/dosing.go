package service

import (
	"errors"

	"reservoir_controller/internal/models"
)

// Suppression reasons surface verbatim on the dashboard, so these are
// the exact strings, not codes.
const (
	ReasonFeedingInProgress = "feeding in progress"
	ReasonNoWater           = "no water detected"
	ReasonBucketEmpty       = "bucket empty"
	ReasonNotCalibrated     = "pump not calibrated"
)

// ErrNotCalibrated marks a dose request against a pump with no
// calibration record. Dosing with a default or guessed flow rate is
// never acceptable.
var ErrNotCalibrated = errors.New(ReasonNotCalibrated)

// MaxDoseSecondsDefault bounds a single dispense so a stale or
// corrupted calibration record cannot run a pump indefinitely.
const MaxDoseSecondsDefault = 120.0

// PumpLookup resolves a pump and its current calibration.
type PumpLookup func(pumpID string) (models.Pump, error)

// DosingController turns a dose request into a timed pump run, or a
// suppression with the first failing guard as the reason.
type DosingController struct {
	// MaxDoseSeconds clamps any single dispense.
	MaxDoseSeconds float64
}

func NewDosingController(maxDoseSeconds float64) DosingController {
	if maxDoseSeconds <= 0 {
		maxDoseSeconds = MaxDoseSecondsDefault
	}
	return DosingController{MaxDoseSeconds: maxDoseSeconds}
}

// Tick evaluates one dose request against the current fused state and
// feeding session. It returns ok=false when there is no request at
// all; "no request" and "suppressed request" are distinct outcomes for
// logging. Guard order is fixed; the first failing guard wins:
//
//  1. feeding in progress
//  2. no water detected
//  3. bucket empty
//  4. pump not calibrated
//
// Otherwise duration = volume / calibrated flow rate, clamped.
// Tick only computes; the actuation layer runs the timer.
func (d DosingController) Tick(fused models.FusedState, session models.FeedingSession, req *models.DoseRequest, pumps PumpLookup) (models.Action, bool) {
	if req == nil {
		return models.Action{}, false
	}

	suppress := func(reason string) (models.Action, bool) {
		return models.Action{Kind: models.ActionSuppressed, PumpID: req.PumpID, Reason: reason}, true
	}

	if session.Active {
		return suppress(ReasonFeedingInProgress)
	}
	if !fused.WaterPresent {
		return suppress(ReasonNoWater)
	}
	if fused.BucketEmpty {
		return suppress(ReasonBucketEmpty)
	}

	pump, err := pumps(req.PumpID)
	if err != nil || pump.FlowRateMLPerSec <= 0 {
		return suppress(ReasonNotCalibrated)
	}

	duration := req.TargetVolumeML / pump.FlowRateMLPerSec
	if duration > d.MaxDoseSeconds {
		duration = d.MaxDoseSeconds
	}
	return models.Action{
		Kind:            models.ActionDispense,
		PumpID:          pump.ID,
		DurationSeconds: duration,
	}, true
}
