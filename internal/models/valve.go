package models

import "time"

// Valve is one solenoid valve on a reservoir. Open state is tracked for
// dashboard highlighting; opening a valve does not by itself start a
// feeding session, the two are related but distinct signals.
type Valve struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Open      bool      `json:"open"`
	ChangedAt time.Time `json:"changed_at,omitempty"`
}
