package store

import (
	"errors"
	"testing"
	"time"
)

func TestUpsertPowerRecord_CreateNew(t *testing.T) {
	db := setupTestDB(t)

	pr := &PowerRecord{
		Category:        "power_20m",
		ActivityID:      1,
		DurationSeconds: 1200,
		AvgWatts:        262,
		AvgHeartrate:    floatPtr(166),
		AchievedAt:      time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		StartOffset:     600,
		EndOffset:       1800,
	}

	updated, err := db.UpsertPowerRecord(pr)
	if err != nil {
		t.Fatalf("UpsertPowerRecord failed: %v", err)
	}
	if !updated {
		t.Error("Expected updated=true for new record")
	}

	fetched, err := db.GetPowerRecord("power_20m")
	if err != nil {
		t.Fatalf("GetPowerRecord failed: %v", err)
	}
	if fetched.AvgWatts != 262 {
		t.Errorf("Expected 262 W, got %v", fetched.AvgWatts)
	}
	if fetched.StartOffset != 600 || fetched.EndOffset != 1800 {
		t.Errorf("Expected offsets 600-1800, got %d-%d", fetched.StartOffset, fetched.EndOffset)
	}
	if !fetched.AchievedAt.Equal(pr.AchievedAt) {
		t.Errorf("Expected achieved_at %v, got %v", pr.AchievedAt, fetched.AchievedAt)
	}
}

func TestUpsertPowerRecord_OnlyHigherPowerWins(t *testing.T) {
	db := setupTestDB(t)

	db.UpsertPowerRecord(&PowerRecord{
		Category: "power_5m", ActivityID: 1, DurationSeconds: 300, AvgWatts: 310, AchievedAt: time.Now(),
	})

	tests := []struct {
		name       string
		watts      float64
		wantUpdate bool
		wantWatts  float64
	}{
		{"lower power", 300, false, 310},
		{"equal power keeps original", 310, false, 310},
		{"higher power", 325, true, 325},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := db.UpsertPowerRecord(&PowerRecord{
				Category: "power_5m", ActivityID: 2, DurationSeconds: 300, AvgWatts: tt.watts, AchievedAt: time.Now(),
			})
			if err != nil {
				t.Fatalf("UpsertPowerRecord failed: %v", err)
			}
			if updated != tt.wantUpdate {
				t.Errorf("updated = %v, want %v", updated, tt.wantUpdate)
			}

			fetched, _ := db.GetPowerRecord("power_5m")
			if fetched.AvgWatts != tt.wantWatts {
				t.Errorf("Expected %v W, got %v", tt.wantWatts, fetched.AvgWatts)
			}
		})
	}
}

func TestGetAllPowerRecords_OrderedByDuration(t *testing.T) {
	db := setupTestDB(t)

	for _, pr := range []*PowerRecord{
		{Category: "power_20m", ActivityID: 1, DurationSeconds: 1200, AvgWatts: 260, AchievedAt: time.Now()},
		{Category: "power_5s", ActivityID: 2, DurationSeconds: 5, AvgWatts: 980, AchievedAt: time.Now()},
		{Category: "power_1m", ActivityID: 2, DurationSeconds: 60, AvgWatts: 520, AchievedAt: time.Now()},
	} {
		db.UpsertPowerRecord(pr)
	}

	all, err := db.GetAllPowerRecords()
	if err != nil {
		t.Fatalf("GetAllPowerRecords failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0].Category != "power_5s" || all[2].Category != "power_20m" {
		t.Errorf("Unexpected order: %s, %s, %s", all[0].Category, all[1].Category, all[2].Category)
	}
}

func TestGetPowerRecord_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetPowerRecord("nonexistent")
	if !errors.Is(err, ErrPowerRecordNotFound) {
		t.Errorf("Expected ErrPowerRecordNotFound, got %v", err)
	}
}

func TestDeletePowerRecordsForActivity(t *testing.T) {
	db := setupTestDB(t)

	db.UpsertPowerRecord(&PowerRecord{Category: "power_5s", ActivityID: 1, DurationSeconds: 5, AvgWatts: 900, AchievedAt: time.Now()})
	db.UpsertPowerRecord(&PowerRecord{Category: "power_1m", ActivityID: 1, DurationSeconds: 60, AvgWatts: 500, AchievedAt: time.Now()})
	db.UpsertPowerRecord(&PowerRecord{Category: "power_5m", ActivityID: 2, DurationSeconds: 300, AvgWatts: 320, AchievedAt: time.Now()})

	if err := db.DeletePowerRecordsForActivity(1); err != nil {
		t.Fatalf("DeletePowerRecordsForActivity failed: %v", err)
	}

	all, _ := db.GetAllPowerRecords()
	if len(all) != 1 {
		t.Fatalf("Expected 1 record remaining, got %d", len(all))
	}
	if all[0].ActivityID != 2 {
		t.Errorf("Expected remaining record to be for activity 2")
	}
}
