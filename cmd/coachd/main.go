// Command coachd serves training snapshots, Strava sync and the coaching
// chat over an authenticated JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cyclecoach/internal/app"
	"cyclecoach/internal/auth"
	"cyclecoach/internal/coach"
	"cyclecoach/internal/config"
	"cyclecoach/internal/httpapi"
	"cyclecoach/internal/logging"
	"cyclecoach/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (default ~/.cyclecoach/config.json)")
	dbPath := flag.String("db", "", "path to the sqlite database (default ~/.cyclecoach/data.db)")
	issueToken := flag.String("issue-token", "", "print an API token for the given user id and exit")
	flag.Parse()

	if err := run(*configPath, *dbPath, *issueToken); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, dbPath, issueToken string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	tokens := auth.NewTokens(cfg.Server)
	if issueToken != "" {
		token, err := tokens.Issue(issueToken)
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	logger, closer, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer closer.Close()

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	ts, err := app.TokenSource(ctx, cfg, db, logger)
	if errors.Is(err, store.ErrNoAuth) {
		return errors.New("no Strava authorization stored; run cyclecoach once to log in")
	}
	if err != nil {
		return fmt.Errorf("checking auth: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := app.Build(ctx, cfg, db, ts, reg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("closing services")
		}
	}()

	deps := httpapi.Deps{
		Tokens:   tokens,
		Analysis: svc.Analysis,
		Sync:     svc.Sync,
		Queries:  svc.Queries,
		FTP:      svc.FTP,
		Profiles: svc.Profiles,
		Metrics:  svc.Metrics,
		Gatherer: reg,
		Logger:   logging.Component(logger, "http"),
	}
	if cfg.Coach.APIKey != "" {
		deps.Coach = coach.New(coach.NewChatClient(cfg.Coach), logging.Component(logger, "coach"))
	} else {
		logger.Warn().Msg("coach.api_key not set, chat endpoint disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // a full sync runs inside the request
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("coachd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if errors.Is(err, config.ErrNoConfig) {
		return nil, errors.New("no config file found; run cyclecoach once to create one")
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
