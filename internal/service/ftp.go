package service

import (
	"context"
	"errors"
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/config"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/store"

	"github.com/rs/zerolog"
)

// FTPSource says where a resolved FTP came from
type FTPSource string

const (
	FTPSourceProfile  FTPSource = "profile"
	FTPSourceEstimate FTPSource = "estimate"
	FTPSourceConfig   FTPSource = "config"
	FTPSourceFallback FTPSource = "fallback"
)

// FTPResolution is the FTP used for load calculations
type FTPResolution struct {
	Watts  int       `json:"watts"`
	Source FTPSource `json:"source"`
}

// FTPResolver applies the FTP precedence: the rider's profile override, then
// an estimate from recent power streams, then the configured value, then the
// fixed fallback.
type FTPResolver struct {
	profiles     profile.Store
	estimator    *analysis.FTPEstimator
	store        *store.DB
	athlete      config.AthleteConfig
	lookbackDays int
	now          func() time.Time
	logger       zerolog.Logger
}

// NewFTPResolver creates a resolver. profiles and estimator may be nil.
func NewFTPResolver(profiles profile.Store, estimator *analysis.FTPEstimator, db *store.DB, cfg *config.Config, logger zerolog.Logger) *FTPResolver {
	return &FTPResolver{
		profiles:     profiles,
		estimator:    estimator,
		store:        db,
		athlete:      cfg.Athlete,
		lookbackDays: cfg.Analysis.FTPLookbackDays,
		now:          time.Now,
		logger:       logger,
	}
}

// Resolve never fails; lookup errors fall through to the next source
func (r *FTPResolver) Resolve(ctx context.Context, userID string) FTPResolution {
	if r.profiles != nil {
		p, err := r.profiles.Get(ctx, userID)
		switch {
		case err == nil:
			if ftp, ok := p.OverrideFTP(); ok {
				return FTPResolution{Watts: ftp, Source: FTPSourceProfile}
			}
		case !errors.Is(err, profile.ErrNotFound):
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("profile lookup failed, ignoring FTP override")
		}
	}

	if ftp, ok := r.estimate(ctx); ok {
		return FTPResolution{Watts: ftp, Source: FTPSourceEstimate}
	}

	if r.athlete.FTP > 0 {
		return FTPResolution{Watts: r.athlete.FTP, Source: FTPSourceConfig}
	}
	return FTPResolution{Watts: r.athlete.FallbackFTP, Source: FTPSourceFallback}
}

func (r *FTPResolver) estimate(ctx context.Context) (int, bool) {
	if r.estimator == nil || r.store == nil {
		return 0, false
	}

	since := r.now().AddDate(0, 0, -r.lookbackDays)
	activities, err := r.store.ListActivitiesSince(since)
	if err != nil {
		r.logger.Warn().Err(err).Msg("listing activities for FTP estimate")
		return 0, false
	}

	return r.estimator.Estimate(ctx, toAnalysisActivities(activities))
}
