package store

import (
	"testing"
	"time"
)

func floatPtr(f float64) *float64 {
	return &f
}

// setupTestDB creates an in-memory database with two rides for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	fixtures := []*Activity{
		{
			ID: 1, AthleteID: 123, Name: "Morning Ride", Type: "Ride",
			StartDate:      time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			StartDateLocal: time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
			Distance:       42000, MovingTime: 5400, ElapsedTime: 5700,
			AverageWatts: floatPtr(185), WeightedAverageWatts: floatPtr(201), DeviceWatts: true,
		},
		{
			ID: 2, AthleteID: 123, Name: "Zwift Race", Type: "VirtualRide",
			StartDate:      time.Date(2024, 1, 20, 18, 0, 0, 0, time.UTC),
			StartDateLocal: time.Date(2024, 1, 20, 19, 0, 0, 0, time.UTC),
			Distance:       30000, MovingTime: 3000, ElapsedTime: 3000,
			AverageWatts: floatPtr(230), DeviceWatts: true,
		},
	}
	for _, a := range fixtures {
		if err := db.UpsertActivity(a); err != nil {
			t.Fatalf("Failed to insert test activity %d: %v", a.ID, err)
		}
	}

	return db
}
