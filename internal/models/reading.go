package models

import "time"

// SensorKind identifies what a sensor measures.
type SensorKind string

const (
	SensorFlow          SensorKind = "flow"           // pulse flow meter, Value in L/min
	SensorLevelLocal    SensorKind = "level_local"    // float switch in the local reservoir
	SensorLevelRemote   SensorKind = "level_remote"   // float switch reported by the remote plant unit
	SensorWaterPresence SensorKind = "water_presence" // contact sensor at the dosing point
)

// Switch-style sensors report LevelEmpty when dry and LevelFull when submerged.
const (
	LevelEmpty = 0.0
	LevelFull  = 1.0
)

// SensorReading is an immutable snapshot of one raw sensor value,
// produced by the ingest layer. A reading older than the configured
// max age is treated as unknown by fusion.
type SensorReading struct {
	SensorID  string     `json:"sensor_id"`
	Kind      SensorKind `json:"kind"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// Wet reports whether a presence/level style reading indicates water
// at the sensor.
func (r SensorReading) Wet() bool { return r.Value > LevelEmpty }

// Flowing reports whether a flow reading indicates measurable flow.
func (r SensorReading) Flowing() bool { return r.Value > 0 }
