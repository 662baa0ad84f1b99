package service

import (
	"time"

	"reservoir_controller/internal/models"
)

// Signal is a tri-state sensor condition. Unknown (missing or stale
// reading) never counts as evidence in either direction: it cannot
// enable an action and it cannot disable one.
type Signal int8

const (
	SignalUnknown Signal = iota
	SignalInactive
	SignalActive
)

// wetSignal maps a presence/level reading to whether water is at the sensor.
func wetSignal(r models.SensorReading, ok bool) Signal {
	if !ok {
		return SignalUnknown
	}
	if r.Wet() {
		return SignalActive
	}
	return SignalInactive
}

// emptySignal maps a level reading to whether the sensor reads empty.
func emptySignal(r models.SensorReading, ok bool) Signal {
	if !ok {
		return SignalUnknown
	}
	if r.Wet() {
		return SignalInactive
	}
	return SignalActive
}

// flowSignal maps a flow reading to whether flow is occurring.
func flowSignal(r models.SensorReading, ok bool) Signal {
	if !ok {
		return SignalUnknown
	}
	if r.Flowing() {
		return SignalActive
	}
	return SignalInactive
}

// Draining holds when either redundant feed asserts it: the flow meter
// sees flow OR the remote level sensor reads empty. A single sensor's
// false negative must not mask a real drain, so this is an OR.
func Draining(flow, remoteEmpty Signal) bool {
	return flow == SignalActive || remoteEmpty == SignalActive
}

// WaterPresent holds when at least one water-presence sensor is wet.
// One wet sensor is sufficient evidence that dosing goes into water,
// not air. All-unknown yields false.
func WaterPresent(signals []Signal) bool {
	for _, s := range signals {
		if s == SignalActive {
			return true
		}
	}
	return false
}

// BucketEmpty holds only when every configured level sensor agrees the
// bucket is empty. Asymmetric with WaterPresent on purpose: a single
// false-empty must not halt dosing, so empty needs full corroboration.
// Any unknown or disagreeing sensor yields false.
func BucketEmpty(empties []Signal) bool {
	if len(empties) == 0 {
		return false
	}
	for _, s := range empties {
		if s != SignalActive {
			return false
		}
	}
	return true
}

// Fuse derives the reservoir's fused state from the latest reading per
// sensor. Pure: stale/missing sensors are simply absent from snapshot
// and propagate as unknown. Calling it twice with the same snapshot
// yields the same result.
func Fuse(cfg models.ReservoirConfig, snapshot map[string]models.SensorReading, now time.Time) models.FusedState {
	lookup := func(id string) (models.SensorReading, bool) {
		r, ok := snapshot[id]
		return r, ok
	}

	flow := flowSignal(lookup(cfg.FlowSensor))
	remoteEmpty := emptySignal(lookup(cfg.RemoteLevelSensor))

	water := make([]Signal, 0, len(cfg.WaterSensors))
	for _, id := range cfg.WaterSensors {
		water = append(water, wetSignal(lookup(id)))
	}

	empties := make([]Signal, 0, len(cfg.LevelSensors))
	for _, id := range cfg.LevelSensors {
		empties = append(empties, emptySignal(lookup(id)))
	}

	return models.FusedState{
		Draining:     Draining(flow, remoteEmpty),
		WaterPresent: WaterPresent(water),
		BucketEmpty:  BucketEmpty(empties),
		ComputedAt:   now.UTC(),
	}
}
