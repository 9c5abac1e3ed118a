package store

import (
	"errors"
	"testing"
	"time"
)

func TestActivityMetrics_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)

	m := &ActivityMetrics{
		ActivityID:      1,
		FTP:             250,
		TSS:             98,
		IntensityFactor: floatPtr(0.8),
		NormalizedPower: floatPtr(201),
		BestPower20m:    floatPtr(248),
	}
	if err := db.SaveActivityMetrics(m); err != nil {
		t.Fatalf("SaveActivityMetrics failed: %v", err)
	}

	got, err := db.GetActivityMetrics(1)
	if err != nil {
		t.Fatalf("GetActivityMetrics failed: %v", err)
	}
	if got.TSS != 98 || got.FTP != 250 {
		t.Errorf("Unexpected metrics: %+v", got)
	}
	if got.Decoupling != nil {
		t.Errorf("Expected nil decoupling, got %v", *got.Decoupling)
	}

	// Recomputed against a new FTP
	m.FTP = 270
	m.TSS = 84
	db.SaveActivityMetrics(m)
	got, _ = db.GetActivityMetrics(1)
	if got.TSS != 84 {
		t.Errorf("Expected updated TSS 84, got %d", got.TSS)
	}

	missing, err := db.GetActivityMetrics(2)
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for missing metrics, got %v, %v", missing, err)
	}
}

func TestGetMetricsByActivity(t *testing.T) {
	db := setupTestDB(t)

	db.SaveActivityMetrics(&ActivityMetrics{ActivityID: 2, FTP: 250, TSS: 70})

	byID, err := db.GetMetricsByActivity([]int64{1, 2})
	if err != nil {
		t.Fatalf("GetMetricsByActivity failed: %v", err)
	}
	if len(byID) != 1 || byID[2].TSS != 70 {
		t.Errorf("Unexpected result: %+v", byID)
	}

	if err := db.DeleteAllMetrics(); err != nil {
		t.Fatalf("DeleteAllMetrics failed: %v", err)
	}
	if n, _ := db.CountMetrics(); n != 0 {
		t.Errorf("Expected 0 metrics after delete, got %d", n)
	}
}

func TestFitnessTrends(t *testing.T) {
	db := setupTestDB(t)

	trends := []FitnessTrend{
		{Date: "2024-01-01", TSS: 100, CTL: 2.4, ATL: 14.3, TSB: -11.9, RideCount7d: 1, TotalTSS7d: 100},
		{Date: "2024-01-02", TSS: 0, CTL: 2.3, ATL: 12.2, TSB: -9.9, RideCount7d: 1, TotalTSS7d: 100},
		{Date: "2024-01-03", TSS: 50, CTL: 3.4, ATL: 17.6, TSB: -14.2, RideCount7d: 2, TotalTSS7d: 150},
	}
	if err := db.ReplaceFitnessTrends(trends); err != nil {
		t.Fatalf("ReplaceFitnessTrends failed: %v", err)
	}

	last2, err := db.GetFitnessTrends(2)
	if err != nil {
		t.Fatalf("GetFitnessTrends failed: %v", err)
	}
	if len(last2) != 2 || last2[0].Date != "2024-01-02" || last2[1].Date != "2024-01-03" {
		t.Errorf("Expected last two days oldest first, got %+v", last2)
	}

	// Replace drops the old series
	db.ReplaceFitnessTrends(trends[:1])
	all, _ := db.GetFitnessTrends(30)
	if len(all) != 1 {
		t.Errorf("Expected 1 day after replace, got %d", len(all))
	}
}

func TestSyncState(t *testing.T) {
	db := setupTestDB(t)

	value, err := db.GetSyncState("missing")
	if err != nil || value != "" {
		t.Errorf("Expected empty value, got %q (%v)", value, err)
	}

	never, err := db.GetSyncTime(SyncKeyLastActivitySync)
	if err != nil || !never.IsZero() {
		t.Errorf("Expected zero time, got %v (%v)", never, err)
	}

	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetSyncTime(SyncKeyLastActivitySync, at); err != nil {
		t.Fatalf("SetSyncTime failed: %v", err)
	}
	got, err := db.GetSyncTime(SyncKeyLastActivitySync)
	if err != nil || !got.Equal(at) {
		t.Errorf("Expected %v, got %v (%v)", at, got, err)
	}
}

func TestAuth(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetAuth(); !errors.Is(err, ErrNoAuth) {
		t.Errorf("Expected ErrNoAuth, got %v", err)
	}
	if err := db.UpdateTokens("a", "r", time.Now()); !errors.Is(err, ErrNoAuth) {
		t.Errorf("Expected ErrNoAuth from UpdateTokens, got %v", err)
	}

	expires := time.Unix(1700000000, 0)
	db.SaveAuth(&Auth{AthleteID: 123, AccessToken: "access", RefreshToken: "refresh", ExpiresAt: expires})

	if err := db.UpdateTokens("access2", "refresh2", expires.Add(time.Hour)); err != nil {
		t.Fatalf("UpdateTokens failed: %v", err)
	}
	auth, err := db.GetAuth()
	if err != nil {
		t.Fatalf("GetAuth failed: %v", err)
	}
	if auth.AccessToken != "access2" || !auth.ExpiresAt.Equal(expires.Add(time.Hour)) {
		t.Errorf("Unexpected auth: %+v", auth)
	}

	db.DeleteAuth()
	if _, err := db.GetAuth(); !errors.Is(err, ErrNoAuth) {
		t.Errorf("Expected ErrNoAuth after delete, got %v", err)
	}
}
