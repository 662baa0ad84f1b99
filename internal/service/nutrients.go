package service

import (
	"math"

	"reservoir_controller/internal/models"
)

// Defaults for dose scaling. MLPerUnitPerL is how many milliliters of
// chemical move the measured quantity by one unit in one liter of
// reservoir water; operators tune it per chemical line.
const (
	ToleranceDefault     = 0.1
	MLPerUnitPerLDefault = 1.0
)

// DoseRatio is one pump's share of a correction, e.g. the N:P:K parts
// of a nutrient line or a single pH pump with parts=1.
type DoseRatio struct {
	PumpID   string          `json:"pump_id"`
	Chemical models.Chemical `json:"chemical"`
	Parts    float64         `json:"parts"`
}

// NutrientCalculator converts a measured-vs-desired delta into
// per-pump target volumes. Pure computation, no side effects.
type NutrientCalculator struct {
	// Tolerance is the dead band: within it no dose is requested at
	// all, which is different from a suppressed request.
	Tolerance float64
	// MLPerUnitPerL scales delta and reservoir volume into milliliters.
	MLPerUnitPerL float64
}

func NewNutrientCalculator(tolerance, mlPerUnitPerL float64) NutrientCalculator {
	if tolerance <= 0 {
		tolerance = ToleranceDefault
	}
	if mlPerUnitPerL <= 0 {
		mlPerUnitPerL = MLPerUnitPerLDefault
	}
	return NutrientCalculator{Tolerance: tolerance, MLPerUnitPerL: mlPerUnitPerL}
}

// ComputeTargets maps pumps to target volumes (mL) for correcting
// current toward desired in a reservoir of volumeL liters. The sign of
// the delta selects the direction: a positive delta engages raising
// chemicals (pH-up, nutrients), a negative one engages pH-down. Within
// the tolerance band the result is an empty map: no dose requested.
func (c NutrientCalculator) ComputeTargets(current, desired, volumeL float64, ratios []DoseRatio) map[string]float64 {
	targets := make(map[string]float64)

	delta := desired - current
	if math.Abs(delta) <= c.Tolerance {
		return targets
	}

	raise := delta > 0
	var totalParts float64
	for _, r := range ratios {
		if r.Chemical.Raises() == raise && r.Parts > 0 {
			totalParts += r.Parts
		}
	}
	if totalParts == 0 {
		return targets
	}

	totalML := math.Abs(delta) * volumeL * c.MLPerUnitPerL
	for _, r := range ratios {
		if r.Chemical.Raises() == raise && r.Parts > 0 {
			targets[r.PumpID] = totalML * r.Parts / totalParts
		}
	}
	return targets
}

// MixTargets splits a fill volume between the nutrient line and fresh
// water for a concentration of "N parts fresh to 1 part nutrient".
// Concentration 0 means fresh water only.
func MixTargets(fillVolumeL, concentration float64) (nutrientL, freshL float64) {
	if fillVolumeL <= 0 {
		return 0, 0
	}
	if concentration <= 0 {
		return 0, fillVolumeL
	}
	nutrientL = fillVolumeL / (concentration + 1)
	freshL = fillVolumeL - nutrientL
	return nutrientL, freshL
}
