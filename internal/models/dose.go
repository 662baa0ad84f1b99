package models

// DoseRequest asks for a target volume from one pump. Transient value
// object; it is consumed by a dosing decision and never persisted.
type DoseRequest struct {
	PumpID         string  `json:"pump_id"`
	TargetVolumeML float64 `json:"target_volume_ml"`
	Reason         string  `json:"reason,omitempty"`
}

// ActionKind discriminates dosing decisions.
type ActionKind string

const (
	ActionDispense   ActionKind = "DISPENSE"
	ActionSuppressed ActionKind = "SUPPRESSED"
)

// Action is the outcome of evaluating a dose request against the
// current fused state and feeding session. For a dispense the duration
// is already computed from the pump's calibration; the actuation layer
// owns the timer and the fail-safe shutoff.
type Action struct {
	Kind            ActionKind `json:"kind"`
	PumpID          string     `json:"pump_id,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}

// Suppressed reports whether the action withheld the dose.
func (a Action) Suppressed() bool { return a.Kind == ActionSuppressed }
