package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/store"
)

// mapCache is an unbounded StreamCache
type mapCache map[int64][]float64

func (c mapCache) Get(id int64) ([]float64, bool) {
	w, ok := c[id]
	return w, ok
}

func (c mapCache) Set(id int64, watts []float64) {
	c[id] = watts
}

func staticSource(streams map[int64][]float64) analysis.PowerStreamSource {
	return analysis.PowerStreamFunc(func(_ context.Context, id int64) ([]float64, error) {
		if w, ok := streams[id]; ok {
			return w, nil
		}
		return nil, errors.New("not found")
	})
}

func TestLayeredPowerSource_CacheHit(t *testing.T) {
	c := mapCache{7: {100, 200}}
	m := newRecordingMetrics()
	src := NewLayeredPowerSource(c, openTestDB(t), nil, nil, m, testLogger)

	watts, err := src.PowerStream(context.Background(), 7)
	if err != nil {
		t.Fatalf("PowerStream failed: %v", err)
	}
	if len(watts) != 2 {
		t.Errorf("len(watts) = %d, want 2", len(watts))
	}
	if m.count("cache/hit") != 1 {
		t.Errorf("cache hits = %d, want 1", m.count("cache/hit"))
	}
}

func TestLayeredPowerSource_StoreHitFillsCache(t *testing.T) {
	db := openTestDB(t)
	insertActivity(t, db, ride(1, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 200))
	if err := db.SaveStreams(&store.Streams{ActivityID: 1, Watts: constantStream(10, 210)}); err != nil {
		t.Fatal(err)
	}

	c := mapCache{}
	m := newRecordingMetrics()
	remote := staticSource(map[int64][]float64{1: {999}})
	src := NewLayeredPowerSource(c, db, remote, nil, m, testLogger)

	watts, err := src.PowerStream(context.Background(), 1)
	if err != nil {
		t.Fatalf("PowerStream failed: %v", err)
	}
	if len(watts) != 10 || watts[0] != 210 {
		t.Errorf("watts = %v, want stored stream", watts)
	}
	if _, ok := c[1]; !ok {
		t.Error("stored stream was not written to the cache")
	}
	if m.count("strava/hit") != 0 {
		t.Error("remote source consulted despite store hit")
	}
}

func TestLayeredPowerSource_FallsThroughToArchive(t *testing.T) {
	c := mapCache{}
	m := newRecordingMetrics()
	remote := staticSource(nil)
	archive := staticSource(map[int64][]float64{5: {150, 160, 170}})
	src := NewLayeredPowerSource(c, openTestDB(t), remote, archive, m, testLogger)

	watts, err := src.PowerStream(context.Background(), 5)
	if err != nil {
		t.Fatalf("PowerStream failed: %v", err)
	}
	if len(watts) != 3 {
		t.Errorf("len(watts) = %d, want 3", len(watts))
	}
	if m.count("store/miss") != 1 || m.count("strava/miss") != 1 || m.count("archive/hit") != 1 {
		t.Errorf("unexpected fetch outcomes: %v", m.fetches)
	}
	if _, ok := c[5]; !ok {
		t.Error("archive stream was not written to the cache")
	}
}

func TestLayeredPowerSource_NoStream(t *testing.T) {
	src := NewLayeredPowerSource(nil, openTestDB(t), staticSource(nil), nil, nil, testLogger)

	_, err := src.PowerStream(context.Background(), 42)
	if !errors.Is(err, ErrNoPowerStream) {
		t.Errorf("expected ErrNoPowerStream, got %v", err)
	}
}
