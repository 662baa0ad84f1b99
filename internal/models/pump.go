package models

import "time"

// Chemical is what a dosing pump dispenses.
type Chemical string

const (
	ChemicalPHUp      Chemical = "ph_up"
	ChemicalPHDown    Chemical = "ph_down"
	ChemicalNutrientA Chemical = "nutrient_a"
	ChemicalNutrientB Chemical = "nutrient_b"
)

// Raises reports whether dispensing this chemical moves the measured
// quantity (pH or ppm) upward. pH-down is the only lowering chemical.
func (c Chemical) Raises() bool { return c != ChemicalPHDown }

// Pump is a calibrated dosing pump. FlowRateMLPerSec comes from the
// current calibration record and is zero for a never-calibrated pump;
// dosing treats that as a hard suppression, never a default.
type Pump struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Chemical         Chemical  `json:"chemical"`
	FlowRateMLPerSec float64   `json:"flow_rate_ml_per_sec"`
	CalibratedAt     time.Time `json:"calibrated_at"`
}

// PumpCalibration is one persisted calibration record. Recalibration
// supersedes the previous record instead of overwriting it, so the
// history of what flow rate was in effect when stays auditable.
type PumpCalibration struct {
	ID               int64      `json:"id"`
	PumpID           string     `json:"pump_id"`
	FlowRateMLPerSec float64    `json:"flow_rate_ml_per_sec"`
	CalibratedAt     time.Time  `json:"calibrated_at"`
	SupersededAt     *time.Time `json:"superseded_at,omitempty"`
}
