package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeStreamSource struct {
	mu      sync.Mutex
	streams map[int64][]float64
	errs    map[int64]error
	calls   []int64
}

func (f *fakeStreamSource) PowerStream(ctx context.Context, activityID int64) ([]float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, activityID)
	f.mu.Unlock()

	if err, ok := f.errs[activityID]; ok {
		return nil, err
	}
	return f.streams[activityID], nil
}

func ride(id int64) Activity {
	return Activity{ID: id, Type: "Ride", MovingTimeS: 3600, AverageWatts: floatPtr(200)}
}

func TestBestRollingAverage(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		window   int
		expected float64
		ok       bool
	}{
		{"shorter than window", constantStream(1199, 300), 1200, 0, false},
		{"exactly window", constantStream(1200, 300), 1200, 300, true},
		{"peak in middle", []float64{100, 100, 400, 400, 100}, 2, 400, true},
		{"step size one", []float64{0, 300, 300, 0}, 2, 300, true},
		{"zero window", []float64{1, 2, 3}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := BestRollingAverage(tt.samples, tt.window)
			if ok != tt.ok {
				t.Fatalf("BestRollingAverage() ok = %v, want %v", ok, tt.ok)
			}
			if result != tt.expected {
				t.Errorf("BestRollingAverage() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestEstimateFromStream_WindowFloor(t *testing.T) {
	if _, ok := EstimateFromStream(constantStream(1199, 300)); ok {
		t.Error("1199 samples produced an estimate, want skip")
	}

	estimate, ok := EstimateFromStream(constantStream(1200, 300))
	if !ok {
		t.Fatal("1200 samples were skipped, want estimate")
	}
	if estimate != 285 {
		t.Errorf("EstimateFromStream() = %v, want 285", estimate)
	}
}

func TestFTPEstimator_CorrectionFactor(t *testing.T) {
	// 20 minutes at exactly 300 W inside an easier ride
	stream := append(constantStream(600, 150), constantStream(1200, 300)...)
	stream = append(stream, constantStream(600, 150)...)

	src := &fakeStreamSource{streams: map[int64][]float64{
		1: stream,
		2: constantStream(1800, 250),
	}}
	est := NewFTPEstimator(src, zerolog.Nop())

	ftp, ok := est.Estimate(context.Background(), []Activity{ride(1), ride(2)})
	if !ok {
		t.Fatal("Estimate() ok = false, want true")
	}
	if ftp != 285 {
		t.Errorf("Estimate() = %d, want 285", ftp)
	}
}

func TestFTPEstimator_WindowBoundary(t *testing.T) {
	src := &fakeStreamSource{streams: map[int64][]float64{
		1: constantStream(1199, 400),
		2: constantStream(1200, 200),
	}}
	est := NewFTPEstimator(src, zerolog.Nop())

	ftp, ok := est.Estimate(context.Background(), []Activity{ride(1), ride(2)})
	if !ok {
		t.Fatal("Estimate() ok = false, want true")
	}
	// 1199-sample stream must not contribute its higher power
	if ftp != 190 {
		t.Errorf("Estimate() = %d, want 190", ftp)
	}

	src = &fakeStreamSource{streams: map[int64][]float64{1: constantStream(1199, 400)}}
	if _, ok := NewFTPEstimator(src, zerolog.Nop()).Estimate(context.Background(), []Activity{ride(1)}); ok {
		t.Error("Estimate() with only a 1199-sample stream ok = true, want false")
	}
}

func TestFTPEstimator_PartialFetchFailure(t *testing.T) {
	src := &fakeStreamSource{
		streams: map[int64][]float64{
			1: constantStream(1500, 240),
			3: constantStream(1500, 260),
		},
		errs: map[int64]error{2: errors.New("stream fetch failed")},
	}
	est := NewFTPEstimator(src, zerolog.Nop())

	ftp, ok := est.Estimate(context.Background(), []Activity{ride(1), ride(2), ride(3)})
	if !ok {
		t.Fatal("Estimate() ok = false after one failed fetch, want true")
	}
	// 260 * 0.95 = 247
	if ftp != 247 {
		t.Errorf("Estimate() = %d, want 247", ftp)
	}
	if len(src.calls) != 3 {
		t.Errorf("fetched %d streams, want 3", len(src.calls))
	}
}

func TestFTPEstimator_AllFail(t *testing.T) {
	fail := errors.New("offline")
	src := &fakeStreamSource{errs: map[int64]error{1: fail, 2: fail}}
	est := NewFTPEstimator(src, zerolog.Nop())

	ftp, ok := est.Estimate(context.Background(), []Activity{ride(1), ride(2)})
	if ok || ftp != 0 {
		t.Errorf("Estimate() = (%d, %v), want (0, false)", ftp, ok)
	}
}

func TestEstimateFromStream_ZeroPower(t *testing.T) {
	if estimate, ok := EstimateFromStream(constantStream(1800, 0)); ok {
		t.Errorf("EstimateFromStream() on a zero stream = (%v, true), want skip", estimate)
	}
}

func TestFTPEstimator_ZeroPowerStreamIsUnusable(t *testing.T) {
	src := &fakeStreamSource{streams: map[int64][]float64{1: constantStream(1800, 0)}}
	est := NewFTPEstimator(src, zerolog.Nop())

	ftp, ok := est.Estimate(context.Background(), []Activity{ride(1)})
	if ok || ftp != 0 {
		t.Errorf("Estimate() = (%d, %v), want (0, false)", ftp, ok)
	}

	// a dead meter on one ride does not mask a real effort on another
	src.streams[2] = constantStream(1800, 300)
	ftp, ok = est.Estimate(context.Background(), []Activity{ride(1), ride(2)})
	if !ok || ftp != 285 {
		t.Errorf("Estimate() = (%d, %v), want (285, true)", ftp, ok)
	}
}

func TestFTPEstimator_FiltersCandidates(t *testing.T) {
	run := Activity{ID: 10, Type: "Run", AverageWatts: floatPtr(300)}
	noPower := Activity{ID: 11, Type: "Ride"}
	short := Activity{ID: 12, Type: "Ride", ElapsedTimeS: 900, AverageWatts: floatPtr(300)}
	virtual := Activity{ID: 13, Type: "VirtualRide", WeightedAverageWatts: floatPtr(210)}

	src := &fakeStreamSource{streams: map[int64][]float64{
		10: constantStream(2000, 500),
		11: constantStream(2000, 500),
		12: constantStream(2000, 500),
		13: constantStream(2000, 200),
	}}
	est := NewFTPEstimator(src, zerolog.Nop())

	ftp, ok := est.Estimate(context.Background(), []Activity{run, noPower, short, virtual})
	if !ok || ftp != 190 {
		t.Errorf("Estimate() = (%d, %v), want (190, true)", ftp, ok)
	}
	if len(src.calls) != 1 || src.calls[0] != 13 {
		t.Errorf("fetched %v, want only activity 13", src.calls)
	}
}

func TestFTPEstimator_NoCandidates(t *testing.T) {
	est := NewFTPEstimator(&fakeStreamSource{}, zerolog.Nop())
	if _, ok := est.Estimate(context.Background(), nil); ok {
		t.Error("Estimate(nil) ok = true, want false")
	}
}

func TestFTPEstimator_OrderIndependent(t *testing.T) {
	streams := map[int64][]float64{}
	var activities []Activity
	for i := int64(1); i <= 12; i++ {
		streams[i] = constantStream(1200+int(i), float64(180+i*7))
		activities = append(activities, ride(i))
	}

	reversed := make([]Activity, len(activities))
	for i, a := range activities {
		reversed[len(activities)-1-i] = a
	}

	for _, concurrency := range []int{1, 3, 12} {
		est := NewFTPEstimator(&fakeStreamSource{streams: streams}, zerolog.Nop())
		est.Concurrency = concurrency

		a, _ := est.Estimate(context.Background(), activities)
		b, _ := est.Estimate(context.Background(), reversed)
		// best is 180 + 12*7 = 264, * 0.95 = 250.8
		if a != 251 || b != 251 {
			t.Errorf("concurrency %d: Estimate() = %d / %d, want 251", concurrency, a, b)
		}
	}
}

func TestPowerStreamFunc(t *testing.T) {
	var src PowerStreamSource = PowerStreamFunc(func(ctx context.Context, id int64) ([]float64, error) {
		return constantStream(int(id), 1), nil
	})
	s, err := src.PowerStream(context.Background(), 3)
	if err != nil || len(s) != 3 {
		t.Errorf("PowerStreamFunc returned (%v, %v)", s, err)
	}
}
