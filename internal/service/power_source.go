package service

import (
	"context"
	"errors"
	"fmt"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/cache"
	"cyclecoach/internal/metrics"
	"cyclecoach/internal/store"

	"github.com/rs/zerolog"
)

// ErrNoPowerStream is returned when no layer has samples for an activity
var ErrNoPowerStream = errors.New("no power stream available")

// Stream fetch sources, used as metric labels
const (
	sourceCache   = "cache"
	sourceStore   = "store"
	sourceStrava  = "strava"
	sourceArchive = "archive"
)

// LayeredPowerSource resolves power streams from the in-memory cache, the
// local stream table, Strava and finally the FIT archive. Any hit below the
// cache is written back to it.
type LayeredPowerSource struct {
	cache   cache.StreamCache
	store   *store.DB
	remote  analysis.PowerStreamSource
	archive analysis.PowerStreamSource
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// NewLayeredPowerSource wires the layers. remote and archive may be nil.
func NewLayeredPowerSource(c cache.StreamCache, db *store.DB, remote, archive analysis.PowerStreamSource, m metrics.Recorder, logger zerolog.Logger) *LayeredPowerSource {
	if c == nil {
		c = cache.Noop{}
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &LayeredPowerSource{
		cache:   c,
		store:   db,
		remote:  remote,
		archive: archive,
		metrics: m,
		logger:  logger,
	}
}

// PowerStream implements analysis.PowerStreamSource
func (s *LayeredPowerSource) PowerStream(ctx context.Context, activityID int64) ([]float64, error) {
	if watts, ok := s.cache.Get(activityID); ok {
		s.metrics.IncStreamFetch(sourceCache, "hit")
		return watts, nil
	}

	if s.store != nil {
		streams, err := s.store.GetStreams(activityID)
		switch {
		case err == nil && len(streams.Watts) > 0:
			return s.hit(sourceStore, activityID, streams.Watts), nil
		case err == nil || errors.Is(err, store.ErrNoStreams):
			s.metrics.IncStreamFetch(sourceStore, "miss")
		default:
			s.metrics.IncStreamFetch(sourceStore, "error")
			s.logger.Warn().Err(err).Int64("activity_id", activityID).Msg("reading stored stream")
		}
	}

	for _, layer := range []struct {
		name string
		src  analysis.PowerStreamSource
	}{{sourceStrava, s.remote}, {sourceArchive, s.archive}} {
		if layer.src == nil {
			continue
		}
		watts, err := layer.src.PowerStream(ctx, activityID)
		if err == nil && len(watts) > 0 {
			return s.hit(layer.name, activityID, watts), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.metrics.IncStreamFetch(layer.name, "miss")
		if err != nil {
			s.logger.Debug().Err(err).Str("source", layer.name).Int64("activity_id", activityID).Msg("power stream not found")
		}
	}

	return nil, fmt.Errorf("activity %d: %w", activityID, ErrNoPowerStream)
}

func (s *LayeredPowerSource) hit(source string, activityID int64, watts []float64) []float64 {
	s.metrics.IncStreamFetch(source, "hit")
	s.cache.Set(activityID, watts)
	return watts
}
