package sensors

import (
	"testing"
	"time"

	"reservoir_controller/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_LatestReturnsFreshReading(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(30 * time.Second)
	s.now = fixedClock(now)

	s.Put(models.SensorReading{
		SensorID:  "flow-1",
		Kind:      models.SensorFlow,
		Value:     2.5,
		Timestamp: now.Add(-5 * time.Second),
	})

	r, ok := s.Latest("flow-1")
	if !ok {
		t.Fatalf("expected fresh reading")
	}
	if r.Value != 2.5 {
		t.Errorf("value: want 2.5, got %v", r.Value)
	}
}

func TestStore_StaleReadingIsUnknown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(30 * time.Second)
	s.now = fixedClock(now)

	s.Put(models.SensorReading{
		SensorID:  "level-1",
		Kind:      models.SensorLevelLocal,
		Value:     models.LevelFull,
		Timestamp: now.Add(-31 * time.Second),
	})

	if _, ok := s.Latest("level-1"); ok {
		t.Fatalf("stale reading must not be returned")
	}
}

func TestStore_MissingSensorIsUnknown(t *testing.T) {
	s := NewStore(0)
	if _, ok := s.Latest("nope"); ok {
		t.Fatalf("missing sensor must report !ok")
	}
}

func TestStore_SnapshotOmitsStaleAndMissing(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(30 * time.Second)
	s.now = fixedClock(now)

	s.Put(models.SensorReading{SensorID: "a", Kind: models.SensorWaterPresence, Value: 1, Timestamp: now})
	s.Put(models.SensorReading{SensorID: "b", Kind: models.SensorWaterPresence, Value: 1, Timestamp: now.Add(-time.Minute)})

	snap := s.Snapshot([]string{"a", "b", "c"})
	if len(snap) != 1 {
		t.Fatalf("want 1 fresh reading, got %d", len(snap))
	}
	if _, ok := snap["a"]; !ok {
		t.Errorf("fresh reading missing from snapshot")
	}
}

func TestStore_PutStampsZeroTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(30 * time.Second)
	s.now = fixedClock(now)

	s.Put(models.SensorReading{SensorID: "x", Kind: models.SensorFlow, Value: 1})
	r, ok := s.Latest("x")
	if !ok {
		t.Fatalf("expected reading")
	}
	if !r.Timestamp.Equal(now) {
		t.Errorf("timestamp: want %v, got %v", now, r.Timestamp)
	}
}
