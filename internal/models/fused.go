package models

import "time"

// FusedState holds the boolean conditions derived from the latest raw
// readings under the corroboration rules:
//
//   - Draining: flow sensor active OR remote level empty (redundant OR,
//     either signal alone is sufficient evidence).
//   - WaterPresent: OR across water-presence sensors.
//   - BucketEmpty: AND across level sensors (a single false-empty must
//     not halt dosing).
//
// Unknown readings never count as evidence in any direction.
type FusedState struct {
	Draining     bool      `json:"draining"`
	WaterPresent bool      `json:"water_present"`
	BucketEmpty  bool      `json:"bucket_empty"`
	ComputedAt   time.Time `json:"computed_at"`
}
