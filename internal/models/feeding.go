package models

import "time"

// FeedingSession is the bounded window during which a feed cycle runs.
// While active, pH dosing and outbound notifications are suppressed.
// StartedAt is persisted so a restart can recompute the remaining
// timeout deterministically.
type FeedingSession struct {
	ReservoirID string    `json:"reservoir_id"`
	Active      bool      `json:"active"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	ValveID     string    `json:"valve_id,omitempty"`
}

// Expired reports whether the session has outlived the ceiling at the
// given instant. Inactive sessions never expire.
func (s FeedingSession) Expired(now time.Time, ceiling time.Duration) bool {
	return s.Active && now.Sub(s.StartedAt) >= ceiling
}
