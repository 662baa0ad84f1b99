package service

import (
	"testing"
	"time"

	"reservoir_controller/internal/models"
)

func TestAdvanceFeeding_InactiveNeverExpires(t *testing.T) {
	s := StopFeeding("res-1")
	got, timedOut := AdvanceFeeding(s, time.Now().Add(100*time.Hour), FeedingTimeoutDefault)
	if timedOut || got.Active {
		t.Fatalf("idle session must never time out: %+v", got)
	}
}

func TestAdvanceFeeding_WithinWindowKeepsSession(t *testing.T) {
	start := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	s := StartFeeding("res-1", "feed-a", start)

	got, timedOut := AdvanceFeeding(s, start.Add(FeedingTimeoutDefault-time.Second), FeedingTimeoutDefault)
	if timedOut {
		t.Fatalf("session inside the window must not time out")
	}
	if !got.Active || got.ValveID != "feed-a" {
		t.Fatalf("session mutated: %+v", got)
	}
}

func TestAdvanceFeeding_CeilingFires(t *testing.T) {
	start := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	s := StartFeeding("res-1", "feed-a", start)

	// One second past the ceiling.
	got, timedOut := AdvanceFeeding(s, start.Add(FeedingTimeoutDefault+time.Second), FeedingTimeoutDefault)
	if !timedOut {
		t.Fatalf("expected timeout past the ceiling")
	}
	if got.Active {
		t.Fatalf("timed-out session must be cleared: %+v", got)
	}
	if got.ReservoirID != "res-1" {
		t.Fatalf("cleared session must keep the reservoir: %+v", got)
	}
}

func TestAdvanceFeeding_ExactCeilingFires(t *testing.T) {
	start := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	s := StartFeeding("res-1", "feed-a", start)
	if _, timedOut := AdvanceFeeding(s, start.Add(FeedingTimeoutDefault), FeedingTimeoutDefault); !timedOut {
		t.Fatalf("expected timeout at exactly the ceiling")
	}
}

func TestAdvanceFeeding_RecomputesFromPersistedStart(t *testing.T) {
	// A session restored after a restart keeps its original StartedAt;
	// the remaining window must be computed from it, not from "now".
	start := time.Now().UTC().Add(-90 * time.Minute)
	restored := models.FeedingSession{ReservoirID: "res-1", Active: true, StartedAt: start, ValveID: "feed-a"}

	got, timedOut := AdvanceFeeding(restored, time.Now().UTC(), 2*time.Hour)
	if timedOut || !got.Active {
		t.Fatalf("90m into a 2h window must still be active: %+v", got)
	}

	got, timedOut = AdvanceFeeding(restored, time.Now().UTC().Add(40*time.Minute), 2*time.Hour)
	if !timedOut || got.Active {
		t.Fatalf("130m into a 2h window must have timed out: %+v", got)
	}
}

func TestStartFeeding_RestartResetsWindow(t *testing.T) {
	first := StartFeeding("res-1", "feed-a", time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC))
	second := StartFeeding("res-1", "feed-b", first.StartedAt.Add(time.Hour))

	if !second.StartedAt.After(first.StartedAt) {
		t.Fatalf("restart must reset the window start")
	}
	if second.ValveID != "feed-b" {
		t.Fatalf("restart must take the new valve: %+v", second)
	}
	// The old session would expire at 12:00; the restarted one at 13:00.
	if _, timedOut := AdvanceFeeding(second, first.StartedAt.Add(2*time.Hour+time.Minute), 2*time.Hour); timedOut {
		t.Fatalf("restarted session expired on the old window")
	}
}

func TestAdvanceFeeding_ZeroCeilingUsesDefault(t *testing.T) {
	start := time.Now().UTC()
	s := StartFeeding("res-1", "feed-a", start)
	if _, timedOut := AdvanceFeeding(s, start.Add(time.Hour), 0); timedOut {
		t.Fatalf("1h into the default 2h window must not time out")
	}
	if _, timedOut := AdvanceFeeding(s, start.Add(3*time.Hour), 0); !timedOut {
		t.Fatalf("3h into the default 2h window must time out")
	}
}
