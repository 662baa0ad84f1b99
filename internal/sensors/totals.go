package sensors

import (
	"sync"
	"time"

	"reservoir_controller/internal/models"
)

// Totalizer accumulates delivered volume per flow sensor by integrating
// the reported rate (L/min) over the time between readings. Totals are
// in liters and survive until an explicit reset.
type Totalizer struct {
	mu     sync.Mutex
	totals map[string]float64
	last   map[string]time.Time
}

func NewTotalizer() *Totalizer {
	return &Totalizer{
		totals: make(map[string]float64),
		last:   make(map[string]time.Time),
	}
}

// Add folds a flow reading into the running total. Non-flow readings
// are ignored. The first reading for a sensor only establishes the
// integration baseline.
func (t *Totalizer) Add(r models.SensorReading) {
	if r.Kind != models.SensorFlow {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, seen := t.last[r.SensorID]
	t.last[r.SensorID] = r.Timestamp
	if !seen {
		return
	}
	dt := r.Timestamp.Sub(prev)
	if dt <= 0 {
		return
	}
	t.totals[r.SensorID] += r.Value * dt.Minutes()
}

// Total returns the accumulated volume in liters for a sensor.
func (t *Totalizer) Total(sensorID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals[sensorID]
}

// Reset zeroes a sensor's total and returns the previous value so the
// caller can log it.
func (t *Totalizer) Reset(sensorID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.totals[sensorID]
	t.totals[sensorID] = 0
	return prev
}
