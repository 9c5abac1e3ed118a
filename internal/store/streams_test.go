package store

import (
	"errors"
	"testing"
)

func TestSaveAndGetStreams(t *testing.T) {
	db := setupTestDB(t)

	watts := make([]float64, 1800)
	for i := range watts {
		watts[i] = float64(200 + i%50)
	}
	in := &Streams{
		ActivityID: 1,
		Watts:      watts,
		Heartrate:  []float64{120, 130, 140},
	}

	if err := db.SaveStreams(in); err != nil {
		t.Fatalf("SaveStreams failed: %v", err)
	}

	out, err := db.GetStreams(1)
	if err != nil {
		t.Fatalf("GetStreams failed: %v", err)
	}
	if len(out.Watts) != 1800 || out.Watts[1799] != watts[1799] {
		t.Errorf("Watts not round-tripped: len=%d", len(out.Watts))
	}
	if len(out.Heartrate) != 3 || out.Heartrate[2] != 140 {
		t.Errorf("Heartrate not round-tripped: %v", out.Heartrate)
	}
	if len(out.Cadence) != 0 {
		t.Errorf("Expected empty cadence, got %d samples", len(out.Cadence))
	}

	count, _ := db.GetStreamCount(1)
	if count != 1800 {
		t.Errorf("Expected sample count 1800, got %d", count)
	}
}

func TestSaveStreams_Replaces(t *testing.T) {
	db := setupTestDB(t)

	db.SaveStreams(&Streams{ActivityID: 1, Watts: []float64{1, 2, 3}})
	db.SaveStreams(&Streams{ActivityID: 1, Watts: []float64{4, 5}})

	out, _ := db.GetStreams(1)
	if len(out.Watts) != 2 || out.Watts[0] != 4 {
		t.Errorf("Expected replaced stream, got %v", out.Watts)
	}
}

func TestGetStreams_NotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetStreams(2); !errors.Is(err, ErrNoStreams) {
		t.Errorf("Expected ErrNoStreams, got %v", err)
	}
	if count, err := db.GetStreamCount(2); err != nil || count != 0 {
		t.Errorf("Expected 0 samples, got %d (%v)", count, err)
	}
}

func TestDeleteStreams(t *testing.T) {
	db := setupTestDB(t)

	db.SaveStreams(&Streams{ActivityID: 1, Watts: []float64{1, 2, 3}})
	if err := db.DeleteStreams(1); err != nil {
		t.Fatalf("DeleteStreams failed: %v", err)
	}
	if _, err := db.GetStreams(1); !errors.Is(err, ErrNoStreams) {
		t.Errorf("Expected ErrNoStreams after delete, got %v", err)
	}
}

func TestGetActivitiesNeedingMetrics(t *testing.T) {
	db := setupTestDB(t)

	db.MarkStreamsSynced(1)
	db.MarkStreamsSynced(2)

	pending, err := db.GetActivitiesNeedingMetrics()
	if err != nil {
		t.Fatalf("GetActivitiesNeedingMetrics failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(pending))
	}

	db.SaveActivityMetrics(&ActivityMetrics{ActivityID: 2, FTP: 250, TSS: 70})

	pending, _ = db.GetActivitiesNeedingMetrics()
	if len(pending) != 1 || pending[0].ID != 1 {
		t.Errorf("Expected only activity 1, got %+v", pending)
	}
}
