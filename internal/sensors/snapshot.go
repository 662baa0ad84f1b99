package sensors

import (
	"sync"
	"time"

	"reservoir_controller/internal/models"
)

// Store caches the latest reading per sensor. The control loop reads a
// consistent snapshot once per cycle; readings older than maxAge are
// withheld so fusion treats the sensor as unknown rather than acting on
// stale data.
type Store struct {
	mu       sync.RWMutex
	readings map[string]models.SensorReading
	maxAge   time.Duration
	now      func() time.Time
}

const DefaultMaxAge = 30 * time.Second

func NewStore(maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		readings: make(map[string]models.SensorReading),
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Put records the latest reading for a sensor. A reading with a zero
// timestamp is stamped on arrival.
func (s *Store) Put(r models.SensorReading) {
	if r.SensorID == "" {
		return
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now().UTC()
	}
	s.mu.Lock()
	s.readings[r.SensorID] = r
	s.mu.Unlock()
}

// Latest returns the cached reading for a sensor. ok is false when no
// reading exists or the cached one is stale.
func (s *Store) Latest(sensorID string) (models.SensorReading, bool) {
	s.mu.RLock()
	r, found := s.readings[sensorID]
	s.mu.RUnlock()
	if !found || s.stale(r) {
		return models.SensorReading{}, false
	}
	return r, true
}

// Snapshot returns the fresh readings for the requested sensors, keyed
// by sensor ID. Stale or missing sensors are simply absent, which is
// how "unknown" propagates into fusion.
func (s *Store) Snapshot(sensorIDs []string) map[string]models.SensorReading {
	out := make(map[string]models.SensorReading, len(sensorIDs))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sensorIDs {
		if r, found := s.readings[id]; found && !s.stale(r) {
			out[id] = r
		}
	}
	return out
}

func (s *Store) stale(r models.SensorReading) bool {
	return s.now().Sub(r.Timestamp) > s.maxAge
}
