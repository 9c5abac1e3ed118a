package fitfile

import (
	"context"
	"errors"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/config"

	"github.com/rs/zerolog"
)

// Chain tries each source in order and returns the first stream found.
// ErrNotFound moves on to the next source, any other error is logged and
// also skipped.
type Chain struct {
	Sources []analysis.PowerStreamSource
	Logger  zerolog.Logger
}

// PowerStream implements analysis.PowerStreamSource
func (c Chain) PowerStream(ctx context.Context, activityID int64) ([]float64, error) {
	for _, src := range c.Sources {
		watts, err := src.PowerStream(ctx, activityID)
		if err == nil {
			return watts, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			c.Logger.Warn().Err(err).Int64("activity_id", activityID).Msg("fit archive read failed")
		}
	}
	return nil, ErrNotFound
}

// NewArchive builds the configured archive sources, directory first. It
// returns nil when no archive is configured.
func NewArchive(ctx context.Context, cfg config.ArchiveConfig, logger zerolog.Logger) (analysis.PowerStreamSource, error) {
	var sources []analysis.PowerStreamSource
	if cfg.Dir != "" {
		sources = append(sources, DirSource{Dir: cfg.Dir})
	}
	if cfg.S3.Bucket != "" {
		s3src, err := NewS3Source(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s3src)
	}

	if len(sources) == 0 {
		return nil, nil
	}
	logger.Info().Str("dir", cfg.Dir).Str("bucket", cfg.S3.Bucket).Msg("fit archive enabled")
	return Chain{Sources: sources, Logger: logger}, nil
}
