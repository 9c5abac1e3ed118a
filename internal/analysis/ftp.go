package analysis

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// FTPWindowSamples is 20 minutes of 1 Hz power samples
	FTPWindowSamples = 1200
	// FTPCorrectionFactor scales a 20-minute best to threshold power
	FTPCorrectionFactor = 0.95

	defaultStreamConcurrency = 4
)

// PowerStreamSource fetches the 1 Hz power stream of a single activity
type PowerStreamSource interface {
	PowerStream(ctx context.Context, activityID int64) ([]float64, error)
}

// PowerStreamFunc adapts a function to PowerStreamSource
type PowerStreamFunc func(ctx context.Context, activityID int64) ([]float64, error)

// PowerStream calls f(ctx, activityID)
func (f PowerStreamFunc) PowerStream(ctx context.Context, activityID int64) ([]float64, error) {
	return f(ctx, activityID)
}

// FTPEstimator derives functional threshold power from the best 20-minute
// effort found across a set of activities.
type FTPEstimator struct {
	Source      PowerStreamSource
	Logger      zerolog.Logger
	Concurrency int // maximum concurrent stream fetches
}

// NewFTPEstimator creates an estimator reading streams from source
func NewFTPEstimator(source PowerStreamSource, logger zerolog.Logger) *FTPEstimator {
	return &FTPEstimator{
		Source:      source,
		Logger:      logger.With().Str("component", "ftp_estimator").Logger(),
		Concurrency: defaultStreamConcurrency,
	}
}

// FTPCandidates returns the activities eligible for FTP estimation: power
// bearing types exposing average or weighted power, at least 20 minutes long
// when the elapsed time is known.
func FTPCandidates(activities []Activity) []Activity {
	var candidates []Activity
	for _, a := range activities {
		if !IsPowerBearing(a.Type) || !a.HasPower() {
			continue
		}
		if a.ElapsedTimeS > 0 && a.ElapsedTimeS < FTPWindowSamples {
			continue
		}
		candidates = append(candidates, a)
	}
	return candidates
}

// Estimate fetches candidate streams concurrently and returns the rounded
// maximum estimate. A failed fetch only excludes that activity. The boolean
// is false when no activity produced an estimate.
func (e *FTPEstimator) Estimate(ctx context.Context, activities []Activity) (int, bool) {
	candidates := FTPCandidates(activities)
	if len(candidates) == 0 || e.Source == nil {
		return 0, false
	}

	limit := e.Concurrency
	if limit <= 0 {
		limit = defaultStreamConcurrency
	}

	var (
		mu    sync.Mutex
		best  float64
		found bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, a := range candidates {
		g.Go(func() error {
			stream, err := e.Source.PowerStream(gctx, a.ID)
			if err != nil {
				e.Logger.Warn().Err(err).Int64("activity_id", a.ID).Msg("skipping activity, power stream unavailable")
				return nil
			}

			estimate, ok := EstimateFromStream(stream)
			if !ok {
				e.Logger.Debug().Int64("activity_id", a.ID).Int("samples", len(stream)).Msg("no usable 20 minute power window")
				return nil
			}

			mu.Lock()
			if !found || estimate > best {
				best = estimate
				found = true
			}
			mu.Unlock()
			return nil
		})
	}

	// workers never return errors
	_ = g.Wait()

	if !found {
		return 0, false
	}
	return int(math.Round(best)), true
}

// EstimateFromStream returns the best 20-minute average of a single stream
// scaled by the correction factor. A stream whose best window averages 0 W
// (power meter dropout, zero-filled gaps) yields no estimate.
func EstimateFromStream(stream []float64) (float64, bool) {
	best, ok := BestRollingAverage(stream, FTPWindowSamples)
	if !ok || best <= 0 {
		return 0, false
	}
	return best * FTPCorrectionFactor, true
}
