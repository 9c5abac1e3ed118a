package service

import (
	"sync"
	"testing"
	"time"

	"cyclecoach/internal/config"
	"cyclecoach/internal/metrics"
	"cyclecoach/internal/store"

	"github.com/rs/zerolog"
)

func floatPtr(f float64) *float64 {
	return &f
}

func constantStream(n int, watts float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = watts
	}
	return s
}

// openTestDB creates an in-memory database with migrations applied
func openTestDB(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func insertActivity(t *testing.T, db *store.DB, a *store.Activity) {
	t.Helper()
	if a.StartDateLocal.IsZero() {
		a.StartDateLocal = a.StartDate
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("failed to insert activity %d: %v", a.ID, err)
	}
}

// ride returns an hour-long ride at the given normalized power
func ride(id int64, start time.Time, np float64) *store.Activity {
	return &store.Activity{
		ID: id, AthleteID: 1, Name: "Ride", Type: "Ride",
		StartDate: start, Distance: 30000, MovingTime: 3600, ElapsedTime: 3600,
		AverageWatts: floatPtr(np - 10), WeightedAverageWatts: floatPtr(np),
	}
}

func testConfig(ftp int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Athlete.FTP = ftp
	return &cfg
}

var testLogger = zerolog.Nop()

// recordingMetrics counts stream fetch outcomes by source
type recordingMetrics struct {
	metrics.Noop

	mu      sync.Mutex
	fetches map[string]int
	phases  []string
	fitness [3]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{fetches: make(map[string]int)}
}

func (m *recordingMetrics) IncStreamFetch(source, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[source+"/"+outcome]++
}

func (m *recordingMetrics) ObserveSyncPhase(phase string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases = append(m.phases, phase)
}

func (m *recordingMetrics) SetFitness(ctl, atl, tsb float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fitness = [3]float64{ctl, atl, tsb}
}

func (m *recordingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[key]
}
