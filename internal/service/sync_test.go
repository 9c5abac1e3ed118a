package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/store"
	"cyclecoach/internal/strava"
)

type fakeStrava struct {
	activities   []strava.Activity
	notes        map[int64]string
	streams      map[int64][]float64
	detailErr    error
	pagesFetched int
	detailCalls  int
	streamCalls  int
}

func (f *fakeStrava) GetActivities(_ context.Context, after time.Time, page, perPage int) ([]strava.Activity, error) {
	f.pagesFetched++
	if page > 1 {
		return nil, nil
	}
	var out []strava.Activity
	for _, a := range f.activities {
		if a.StartDate.After(after) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStrava) GetActivity(_ context.Context, id int64) (*strava.DetailedActivity, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	for _, a := range f.activities {
		if a.ID == id {
			return &strava.DetailedActivity{Activity: a, PrivateNote: f.notes[id]}, nil
		}
	}
	return nil, strava.ErrNotFound
}

func (f *fakeStrava) GetActivityStreams(_ context.Context, id int64) (*strava.Streams, error) {
	f.streamCalls++
	watts, ok := f.streams[id]
	if !ok {
		return nil, strava.ErrNotFound
	}
	return &strava.Streams{Watts: &strava.StreamData[float64]{Data: watts}}, nil
}

func (f *fakeStrava) RateLimitStatus() (int, int) { return 100, 1000 }

func stravaRide(id int64, start time.Time, np float64) strava.Activity {
	return strava.Activity{
		ID: id, Name: "Ride " + strconv.FormatInt(id, 10), Type: "Ride",
		StartDate: start, StartDateLocal: start,
		Distance: 40000, MovingTime: 3600, ElapsedTime: 3700,
		AverageWatts: floatPtr(np - 15), WeightedAverageWatts: floatPtr(np), DeviceWatts: true,
	}
}

func newTestSyncService(t *testing.T, db *store.DB, client StravaAPI, ftp int) (*SyncService, *recordingMetrics) {
	t.Helper()
	m := newRecordingMetrics()
	resolver := NewFTPResolver(nil, nil, db, testConfig(ftp), testLogger)
	return NewSyncService(client, db, resolver, m, testLogger), m
}

func TestSyncAll(t *testing.T) {
	start := time.Date(2024, 4, 1, 7, 0, 0, 0, time.UTC)
	client := &fakeStrava{
		activities: []strava.Activity{
			stravaRide(1, start, 200),
			{ID: 2, Name: "Jog", Type: "Run", StartDate: start.AddDate(0, 0, 1), StartDateLocal: start.AddDate(0, 0, 1), Distance: 8000, MovingTime: 2400},
			stravaRide(3, start.AddDate(0, 0, 3), 220),
		},
		notes:   map[int64]string{1: "legs heavy"},
		streams: map[int64][]float64{1: constantStream(1500, 200)},
	}
	db := openTestDB(t)
	svc, m := newTestSyncService(t, db, client, 200)

	progress := make(chan SyncProgress, 256)
	result, err := svc.SyncAll(context.Background(), "u1", progress)
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	if result.ActivitiesFetched != 3 || result.ActivitiesStored != 3 {
		t.Errorf("fetched/stored = %d/%d, want 3/3", result.ActivitiesFetched, result.ActivitiesStored)
	}
	if result.DetailsFetched != 2 || client.detailCalls != 2 {
		t.Errorf("details = %d (calls %d), want 2 rides only", result.DetailsFetched, client.detailCalls)
	}
	if result.StreamsFetched != 1 || client.streamCalls != 2 {
		t.Errorf("streams = %d (calls %d), want 1 of 2", result.StreamsFetched, client.streamCalls)
	}
	if result.MetricsComputed != 2 {
		t.Errorf("MetricsComputed = %d, want 2", result.MetricsComputed)
	}
	// 25 minutes of samples cover 5 s, 1 min, 5 min and 20 min
	if result.RecordsUpdated != 4 {
		t.Errorf("RecordsUpdated = %d, want 4", result.RecordsUpdated)
	}
	if result.TrendDays != 4 {
		t.Errorf("TrendDays = %d, want 4", result.TrendDays)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if result.FTP.Source != FTPSourceConfig {
		t.Errorf("FTP = %+v, want config", result.FTP)
	}

	a, err := db.GetActivity(1)
	if err != nil {
		t.Fatal(err)
	}
	if a.PrivateNote != "legs heavy" {
		t.Errorf("PrivateNote = %q, want detail note", a.PrivateNote)
	}

	metrics, err := db.GetActivityMetrics(1)
	if err != nil || metrics == nil {
		t.Fatalf("metrics for ride 1: %v, %v", metrics, err)
	}
	if metrics.TSS != 100 || metrics.BestPower20m == nil || *metrics.BestPower20m != 200 {
		t.Errorf("metrics = %+v", metrics)
	}

	pr, err := db.GetPowerRecord(analysis.EffortCategories[analysis.Effort20m])
	if err != nil {
		t.Fatalf("20 min record: %v", err)
	}
	if pr.ActivityID != 1 || pr.AvgWatts != 200 {
		t.Errorf("20 min record = %+v", pr)
	}

	var phases []string
	for p := range progress {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
	}
	want := []string{PhaseActivities, PhaseDetails, PhaseStreams, PhaseMetrics, PhaseFitness}
	if len(phases) != len(want) {
		t.Fatalf("progress phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] || m.phases[i] != want[i] {
			t.Errorf("phase %d = %q (timed %q), want %q", i, phases[i], m.phases[i], want[i])
		}
	}
}

func TestSyncAll_Incremental(t *testing.T) {
	start := time.Now().Add(-48 * time.Hour).UTC()
	client := &fakeStrava{activities: []strava.Activity{stravaRide(1, start, 200)}}
	db := openTestDB(t)
	svc, _ := newTestSyncService(t, db, client, 200)

	if _, err := svc.SyncAll(context.Background(), "u1", nil); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	result, err := svc.SyncAll(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if result.ActivitiesFetched != 0 {
		t.Errorf("second sync fetched %d activities, want 0", result.ActivitiesFetched)
	}
	if result.MetricsComputed != 0 {
		t.Errorf("second sync computed %d metrics, want 0", result.MetricsComputed)
	}
	if result.TrendDays == 0 {
		t.Error("fitness trend should be rebuilt from stored activities")
	}
}

func TestSyncAll_DetailErrorsCollected(t *testing.T) {
	start := time.Date(2024, 4, 1, 7, 0, 0, 0, time.UTC)
	client := &fakeStrava{
		activities: []strava.Activity{stravaRide(1, start, 200)},
		detailErr:  errors.New("boom"),
	}
	svc, _ := newTestSyncService(t, openTestDB(t), client, 200)

	result, err := svc.SyncAll(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if result.ActivitiesStored != 1 {
		t.Errorf("ActivitiesStored = %d, want 1 despite detail failure", result.ActivitiesStored)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want one detail error", result.Errors)
	}
}

func TestSyncAll_DetailBackfill(t *testing.T) {
	start := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	total := DetailBatchSize + 10
	client := &fakeStrava{notes: map[int64]string{1: "first ride of the year", int64(total): "latest"}}
	for i := 1; i <= total; i++ {
		client.activities = append(client.activities, stravaRide(int64(i), start.AddDate(0, 0, i), 200))
	}
	db := openTestDB(t)
	svc, _ := newTestSyncService(t, db, client, 200)

	result, err := svc.SyncAll(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if result.ActivitiesStored != total {
		t.Errorf("ActivitiesStored = %d, want %d", result.ActivitiesStored, total)
	}
	if result.DetailsFetched != DetailBatchSize {
		t.Errorf("DetailsFetched = %d, want %d", result.DetailsFetched, DetailBatchSize)
	}
	if a, _ := db.GetActivity(int64(total)); a.PrivateNote != "latest" {
		t.Errorf("newest ride note = %q, want it fetched first", a.PrivateNote)
	}
	if a, _ := db.GetActivity(1); a.PrivateNote != "" {
		t.Errorf("oldest ride note = %q, want it left for the next sync", a.PrivateNote)
	}

	result, err = svc.SyncAll(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if result.ActivitiesFetched != 0 {
		t.Errorf("second sync fetched %d activities, want 0", result.ActivitiesFetched)
	}
	if result.DetailsFetched != total-DetailBatchSize {
		t.Errorf("second sync DetailsFetched = %d, want %d", result.DetailsFetched, total-DetailBatchSize)
	}
	if a, _ := db.GetActivity(1); a.PrivateNote != "first ride of the year" {
		t.Errorf("oldest ride note = %q, want backfilled", a.PrivateNote)
	}
	if client.detailCalls != total {
		t.Errorf("detail calls = %d, want one per ride", client.detailCalls)
	}

	result, _ = svc.SyncAll(context.Background(), "u1", nil)
	if result.DetailsFetched != 0 {
		t.Errorf("third sync DetailsFetched = %d, want 0", result.DetailsFetched)
	}
}

func TestSyncAll_Cancelled(t *testing.T) {
	client := &fakeStrava{activities: []strava.Activity{stravaRide(1, time.Now(), 200)}}
	svc, _ := newTestSyncService(t, openTestDB(t), client, 200)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.SyncAll(ctx, "u1", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInvalidateStaleMetrics(t *testing.T) {
	db := openTestDB(t)
	insertActivity(t, db, ride(1, time.Date(2024, 4, 1, 7, 0, 0, 0, time.UTC), 200))
	if err := db.SaveActivityMetrics(&store.ActivityMetrics{ActivityID: 1, FTP: 200, TSS: 100}); err != nil {
		t.Fatal(err)
	}
	svc, _ := newTestSyncService(t, db, &fakeStrava{}, 200)

	if err := svc.invalidateStaleMetrics(200); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.CountMetrics(); n != 1 {
		t.Errorf("first FTP record should keep metrics, count = %d", n)
	}

	if err := svc.invalidateStaleMetrics(200); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.CountMetrics(); n != 1 {
		t.Errorf("unchanged FTP should keep metrics, count = %d", n)
	}

	if err := svc.invalidateStaleMetrics(240); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.CountMetrics(); n != 0 {
		t.Errorf("changed FTP should clear metrics, count = %d", n)
	}
	if v, _ := db.GetSyncState(store.SyncKeyMetricsFTP); v != "240" {
		t.Errorf("metrics FTP = %q, want 240", v)
	}
}

func TestBuildFitnessTrends(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC) }
	loads := []analysis.DailyLoad{
		{Date: day(1), TSS: 100},
		{Date: day(1), TSS: 50},
		{Date: day(3), TSS: 80},
		{Date: day(10), TSS: 0},
	}

	trends := BuildFitnessTrends(loads)
	if len(trends) != 10 {
		t.Fatalf("len(trends) = %d, want 10 days", len(trends))
	}
	if trends[0].Date != "2024-01-01" || trends[0].TSS != 150 || trends[0].RideCount7d != 2 {
		t.Errorf("day 1 = %+v", trends[0])
	}
	if trends[2].TotalTSS7d != 230 || trends[2].RideCount7d != 3 {
		t.Errorf("day 3 rolling = %+v", trends[2])
	}
	// day 8 drops day 1 from the 7-day window
	if trends[7].TotalTSS7d != 80 || trends[7].RideCount7d != 1 {
		t.Errorf("day 8 rolling = %+v", trends[7])
	}
	if trends[9].TotalTSS7d != 0 {
		t.Errorf("day 10 rolling = %+v", trends[9])
	}
	if trends[9].TSB != trends[9].CTL-trends[9].ATL {
		t.Errorf("TSB should equal CTL - ATL: %+v", trends[9])
	}

	if BuildFitnessTrends(nil) != nil {
		t.Error("empty loads should produce no trend")
	}
}
