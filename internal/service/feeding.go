package service

import (
	"time"

	"reservoir_controller/internal/models"
)

// FeedingTimeoutDefault is the ceiling on a feeding session. A stuck
// "in progress" flag would otherwise block pH correction and
// notifications indefinitely.
const FeedingTimeoutDefault = 2 * time.Hour

// StartFeeding returns a fresh active session. Starting while already
// feeding is not an error: the window restarts.
func StartFeeding(reservoirID, valveID string, now time.Time) models.FeedingSession {
	return models.FeedingSession{
		ReservoirID: reservoirID,
		Active:      true,
		StartedAt:   now.UTC(),
		ValveID:     valveID,
	}
}

// StopFeeding returns the idle session for a reservoir.
func StopFeeding(reservoirID string) models.FeedingSession {
	return models.FeedingSession{ReservoirID: reservoirID}
}

// AdvanceFeeding applies the timeout check. It is level-triggered and
// evaluated on every poll cycle, so it is robust to restarts that
// preserve StartedAt: the remaining window is recomputed from the
// persisted timestamp, never from an in-memory timer. Returns the
// (possibly cleared) session and whether the ceiling fired.
func AdvanceFeeding(s models.FeedingSession, now time.Time, ceiling time.Duration) (models.FeedingSession, bool) {
	if ceiling <= 0 {
		ceiling = FeedingTimeoutDefault
	}
	if !s.Expired(now, ceiling) {
		return s, false
	}
	return StopFeeding(s.ReservoirID), true
}
