package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"cyclecoach/internal/app"
	"cyclecoach/internal/auth"
	"cyclecoach/internal/config"
	"cyclecoach/internal/logging"
	"cyclecoach/internal/store"
	"cyclecoach/internal/tui"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("You need to add your Strava API credentials.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n", configDir)
		return nil
	}

	// the alternate screen owns stdout and stderr, so the TUI always logs to a file
	if cfg.Logger.File == "" {
		configDir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		cfg.Logger.File = filepath.Join(configDir, "coach.log")
	}
	logger, closer, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer closer.Close()

	db, err := store.Open("")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ts, err := app.TokenSource(ctx, cfg, db, logger)
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if err := authenticate(ctx, db, cfg); err != nil {
			return fmt.Errorf("authentication: %w", err)
		}
		ts, err = app.TokenSource(ctx, cfg, db, logger)
	}
	if err != nil {
		return fmt.Errorf("checking auth: %w", err)
	}

	// an unusable refresh token means the rider revoked access
	if _, err := ts.Token(); err != nil {
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if err := db.DeleteAuth(); err != nil {
			return fmt.Errorf("clearing stale auth: %w", err)
		}
		if err := authenticate(ctx, db, cfg); err != nil {
			return fmt.Errorf("re-authentication: %w", err)
		}
		if ts, err = app.TokenSource(ctx, cfg, db, logger); err != nil {
			return fmt.Errorf("fetching auth after login: %w", err)
		}
	}

	svc, err := app.Build(ctx, cfg, db, ts, nil, logger)
	if err != nil {
		return err
	}
	defer closeServices(svc, logger)

	ui := tui.NewApp(svc.Queries, svc.Analysis, svc.Sync, tui.NewUnits(cfg.Display))
	p := tea.NewProgram(ui, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func authenticate(ctx context.Context, db *store.DB, cfg *config.Config) error {
	result, err := auth.Authenticate(ctx, auth.NewOAuthConfig(cfg.Strava), cfg.Strava.CallbackPort, os.Stdout)
	if err != nil {
		return err
	}

	if err := db.SaveAuth(result.StoreAuth()); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
	return nil
}

func closeServices(svc *app.Services, logger zerolog.Logger) {
	if err := svc.Close(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("closing services")
	}
}
