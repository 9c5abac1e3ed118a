package service

import (
	"testing"
	"time"

	"cyclecoach/internal/store"
)

func TestGetMonday(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC), time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)}, // Wednesday
		{time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC), time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)},   // Monday
		{time.Date(2024, 5, 19, 23, 0, 0, 0, time.UTC), time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)},  // Sunday
	}

	for _, tt := range tests {
		if got := getMonday(tt.in); !got.Equal(tt.want) {
			t.Errorf("getMonday(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetDashboardData(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // Wednesday
	db := openTestDB(t)
	insertActivity(t, db, ride(1, time.Date(2024, 5, 13, 7, 0, 0, 0, time.UTC), 200))
	insertActivity(t, db, ride(2, time.Date(2024, 5, 8, 7, 0, 0, 0, time.UTC), 220))
	insertActivity(t, db, &store.Activity{
		ID: 3, AthleteID: 1, Name: "Jog", Type: "Run",
		StartDate: time.Date(2024, 5, 14, 7, 0, 0, 0, time.UTC), Distance: 8000, MovingTime: 2400,
	})

	for _, m := range []*store.ActivityMetrics{
		{ActivityID: 1, FTP: 200, TSS: 100},
		{ActivityID: 2, FTP: 200, TSS: 121},
	} {
		if err := db.SaveActivityMetrics(m); err != nil {
			t.Fatal(err)
		}
	}
	err := db.ReplaceFitnessTrends([]store.FitnessTrend{
		{Date: "2024-05-13", TSS: 100, CTL: 40, ATL: 50, TSB: -10},
		{Date: "2024-05-14", TSS: 0, CTL: 39, ATL: 43, TSB: -4},
	})
	if err != nil {
		t.Fatal(err)
	}

	q := NewQueryService(db)
	q.now = func() time.Time { return now }

	data, err := q.GetDashboardData()
	if err != nil {
		t.Fatalf("GetDashboardData failed: %v", err)
	}

	if data.Fitness.CTL != 39 || data.Fitness.TSB != -4 || data.TrendDate != "2024-05-14" {
		t.Errorf("Fitness = %+v on %s, want latest trend row", data.Fitness, data.TrendDate)
	}
	if len(data.CTLHistory) != 2 || data.CTLHistory[0] != 40 {
		t.Errorf("CTLHistory = %v", data.CTLHistory)
	}
	if data.WeekRideCount != 1 || data.WeekTSS != 100 || data.WeekDistance != 30000 {
		t.Errorf("week = %d rides, %d TSS, %.0f m", data.WeekRideCount, data.WeekTSS, data.WeekDistance)
	}
	if len(data.WeeklyTSS) != chartWeeks || data.WeeklyTSS[chartWeeks-1] != 100 || data.WeeklyTSS[chartWeeks-2] != 121 {
		t.Errorf("WeeklyTSS = %v", data.WeeklyTSS)
	}
	if data.WeeklyLabels[chartWeeks-1] != "May 13" {
		t.Errorf("last week label = %q, want May 13", data.WeeklyLabels[chartWeeks-1])
	}
	if len(data.RecentActivities) != 3 || data.RecentActivities[0].Activity.ID != 3 {
		t.Errorf("RecentActivities should be newest first: %+v", data.RecentActivities)
	}
	if data.RecentActivities[0].Metrics != nil {
		t.Error("run without metrics should have nil Metrics")
	}
}

func TestGetActivitiesList(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		insertActivity(t, db, ride(i, base.AddDate(0, 0, int(i)), 200))
	}
	if err := db.SaveActivityMetrics(&store.ActivityMetrics{ActivityID: 4, FTP: 200, TSS: 100}); err != nil {
		t.Fatal(err)
	}

	q := NewQueryService(db)
	page, err := q.GetActivitiesList(2, 1)
	if err != nil {
		t.Fatalf("GetActivitiesList failed: %v", err)
	}
	if len(page) != 2 || page[0].Activity.ID != 4 || page[1].Activity.ID != 3 {
		t.Fatalf("page = %+v, want rides 4 and 3", page)
	}
	if page[0].Metrics == nil || page[0].Metrics.TSS != 100 {
		t.Errorf("ride 4 metrics = %+v", page[0].Metrics)
	}

	count, err := q.GetTotalActivityCount()
	if err != nil || count != 5 {
		t.Errorf("GetTotalActivityCount() = %d, %v; want 5", count, err)
	}
}

func TestGetPowerRecords(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	insertActivity(t, db, ride(1, start, 200))

	for _, pr := range []*store.PowerRecord{
		{Category: "power_20m", ActivityID: 1, DurationSeconds: 1200, AvgWatts: 210, AchievedAt: start},
		{Category: "power_5s", ActivityID: 1, DurationSeconds: 5, AvgWatts: 780, AchievedAt: start},
	} {
		if _, err := db.UpsertPowerRecord(pr); err != nil {
			t.Fatal(err)
		}
	}

	records, err := NewQueryService(db).GetPowerRecords()
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}
	if len(records) != 2 || records[0].Record.DurationSeconds != 5 {
		t.Fatalf("records = %+v, want shortest first", records)
	}
	if records[1].Activity == nil || records[1].Activity.Name != "Ride" {
		t.Errorf("record activity = %+v", records[1].Activity)
	}
}
