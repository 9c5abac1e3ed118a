// Package app assembles the services shared by the terminal UI and the
// coachd server from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/auth"
	"cyclecoach/internal/cache"
	"cyclecoach/internal/codec"
	"cyclecoach/internal/config"
	"cyclecoach/internal/events"
	"cyclecoach/internal/fitfile"
	"cyclecoach/internal/logging"
	"cyclecoach/internal/metrics"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/service"
	"cyclecoach/internal/store"
	"cyclecoach/internal/strava"
)

// Services holds every wired component
type Services struct {
	Metrics   metrics.Recorder
	Strava    *strava.Client
	Profiles  profile.Store
	Publisher events.Publisher
	FTP       *service.FTPResolver
	Analysis  *service.AnalysisService
	Sync      *service.SyncService
	Queries   *service.QueryService
}

// Build wires the services around an open store and an authorized token
// source. reg may be nil, in which case metrics are discarded.
func Build(ctx context.Context, cfg *config.Config, db *store.DB, ts oauth2.TokenSource, reg prometheus.Registerer, logger zerolog.Logger) (*Services, error) {
	var m metrics.Recorder = metrics.Noop{}
	if reg != nil {
		m = metrics.New(cfg.Metrics, reg)
	}

	c, err := codec.New()
	if err != nil {
		return nil, fmt.Errorf("creating stream codec: %w", err)
	}

	archive, err := fitfile.NewArchive(ctx, cfg.Archive, logging.Component(logger, "archive"))
	if err != nil {
		return nil, fmt.Errorf("opening fit archive: %w", err)
	}

	profiles, err := profile.New(ctx, cfg.Profile, logging.Component(logger, "profile"))
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}

	client := strava.NewClient(ts)
	streamCache := cache.New(cfg.Cache, c, m, logging.Component(logger, "cache"))
	power := service.NewLayeredPowerSource(streamCache, db, client, archive, m, logging.Component(logger, "power"))

	estimator := analysis.NewFTPEstimator(power, logger)
	estimator.Concurrency = cfg.Analysis.StreamConcurrency

	resolver := service.NewFTPResolver(profiles, estimator, db, cfg, logging.Component(logger, "ftp"))
	publisher := events.New(cfg.Events, m, logging.Component(logger, "events"))

	return &Services{
		Metrics:   m,
		Strava:    client,
		Profiles:  profiles,
		Publisher: publisher,
		FTP:       resolver,
		Analysis:  service.NewAnalysisService(db, resolver, profiles, publisher, m, cfg, logging.Component(logger, "analysis")),
		Sync:      service.NewSyncService(client, db, resolver, m, logging.Component(logger, "sync")),
		Queries:   service.NewQueryService(db),
	}, nil
}

// Close releases the profile store and flushes the event publisher
func (s *Services) Close(ctx context.Context) error {
	return errors.Join(s.Publisher.Close(), s.Profiles.Close(ctx))
}

// TokenSource builds a refreshing Strava token source from the stored
// authorization. It returns store.ErrNoAuth when the rider has not logged in.
func TokenSource(ctx context.Context, cfg *config.Config, db *store.DB, logger zerolog.Logger) (*auth.TokenSource, error) {
	stored, err := db.GetAuth()
	if err != nil {
		return nil, err
	}
	return auth.NewTokenSource(ctx, auth.NewOAuthConfig(cfg.Strava), auth.TokenFromAuth(stored), db, logging.Component(logger, "auth")), nil
}
