// Package cache keeps recently used power streams in an off-heap freecache.
package cache

import (
	"strconv"
	"time"

	"cyclecoach/internal/codec"
	"cyclecoach/internal/config"
	"cyclecoach/internal/metrics"

	"github.com/coocood/freecache"
	"github.com/rs/zerolog"
)

// minCacheBytes is freecache's floor; smaller sizes are rounded up by the library
const minCacheBytes = 512 * 1024

// StreamCache stores power streams by activity ID
type StreamCache interface {
	Get(activityID int64) ([]float64, bool)
	Set(activityID int64, watts []float64)
}

// FreeCache is a StreamCache over freecache with zstd-packed values
type FreeCache struct {
	cache   *freecache.Cache
	codec   *codec.Codec
	ttl     int // seconds, 0 means no expiry
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// New returns a FreeCache, or a no-op cache when disabled in cfg
func New(cfg config.CacheConfig, c *codec.Codec, m metrics.Recorder, logger zerolog.Logger) StreamCache {
	if !cfg.Enabled || cfg.SizeMB <= 0 {
		logger.Info().Msg("stream cache disabled")
		return Noop{}
	}

	size := cfg.SizeMB * 1024 * 1024
	if size < minCacheBytes {
		size = minCacheBytes
	}

	logger.Info().Int("size_mb", cfg.SizeMB).Dur("ttl", cfg.TTL).Msg("stream cache initialized")

	return &FreeCache{
		cache:   freecache.NewCache(size),
		codec:   c,
		ttl:     int(cfg.TTL / time.Second),
		metrics: m,
		logger:  logger,
	}
}

func key(activityID int64) []byte {
	return strconv.AppendInt([]byte("watts:"), activityID, 10)
}

// Get returns a cached stream
func (c *FreeCache) Get(activityID int64) ([]float64, bool) {
	blob, err := c.cache.Get(key(activityID))
	if err != nil {
		c.metrics.IncCacheMisses()
		return nil, false
	}

	series, err := c.codec.Decode(blob)
	if err != nil || len(series) == 0 {
		c.logger.Warn().Err(err).Int64("activity_id", activityID).Msg("dropping undecodable cache entry")
		c.cache.Del(key(activityID))
		c.metrics.IncCacheMisses()
		return nil, false
	}

	c.metrics.IncCacheHits()
	return series[0], true
}

// Set stores a stream. Entries larger than the cache segment limit are
// silently skipped.
func (c *FreeCache) Set(activityID int64, watts []float64) {
	blob, err := c.codec.Encode(watts)
	if err != nil {
		return
	}
	if err := c.cache.Set(key(activityID), blob, c.ttl); err != nil {
		c.logger.Debug().Err(err).Int64("activity_id", activityID).Msg("stream not cached")
	}
}

// EntryCount returns the number of cached streams
func (c *FreeCache) EntryCount() int64 {
	return c.cache.EntryCount()
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(_ int64) ([]float64, bool) { return nil, false }
func (Noop) Set(_ int64, _ []float64)      {}
