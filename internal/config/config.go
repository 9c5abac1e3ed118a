package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cyclecoach/internal/analysis"

	"github.com/goccy/go-json"
	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. COACH_SERVER_ADDR
const EnvPrefix = "COACH"

// Config represents the application configuration
type Config struct {
	Strava   StravaConfig   `mapstructure:"strava" json:"strava"`
	Athlete  AthleteConfig  `mapstructure:"athlete" json:"athlete"`
	Analysis AnalysisConfig `mapstructure:"analysis" json:"analysis"`
	Display  DisplayConfig  `mapstructure:"display" json:"display"`
	Logger   LoggerConfig   `mapstructure:"logger" json:"logger"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics"`
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Coach    CoachConfig    `mapstructure:"coach" json:"coach"`
	Profile  ProfileConfig  `mapstructure:"profile" json:"profile"`
	Events   EventsConfig   `mapstructure:"events" json:"events"`
	Archive  ArchiveConfig  `mapstructure:"archive" json:"archive"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `mapstructure:"client_id" json:"client_id"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret"`
	CallbackPort int    `mapstructure:"callback_port" json:"callback_port" validate:"required|min:1|max:65535"`
}

// AthleteConfig holds rider-specific settings. FTP 0 means estimate it.
type AthleteConfig struct {
	FTP         int `mapstructure:"ftp" json:"ftp" validate:"min:0"`
	FallbackFTP int `mapstructure:"fallback_ftp" json:"fallback_ftp" validate:"required|min:1"`
}

// AnalysisConfig controls the training load window and FTP estimation
type AnalysisConfig struct {
	WindowDays        int              `mapstructure:"window_days" json:"window_days" validate:"required|min:1"`
	FTPLookbackDays   int              `mapstructure:"ftp_lookback_days" json:"ftp_lookback_days" validate:"required|min:1"`
	StreamConcurrency int              `mapstructure:"stream_concurrency" json:"stream_concurrency" validate:"required|min:1|max:32"`
	Thresholds        ThresholdsConfig `mapstructure:"thresholds" json:"thresholds"`
}

// ThresholdsConfig mirrors analysis.Thresholds for the config file
type ThresholdsConfig struct {
	OvertrainingTSB float64 `mapstructure:"overtraining_tsb" json:"overtraining_tsb"`
	HighFatigueATL  float64 `mapstructure:"high_fatigue_atl" json:"high_fatigue_atl"`
	FreshTSB        float64 `mapstructure:"fresh_tsb" json:"fresh_tsb"`
	ProductiveTSB   float64 `mapstructure:"productive_tsb" json:"productive_tsb"`
}

// Thresholds converts to the engine's threshold set
func (t ThresholdsConfig) Thresholds() analysis.Thresholds {
	return analysis.Thresholds{
		OvertrainingTSB: t.OvertrainingTSB,
		HighFatigueATL:  t.HighFatigueATL,
		FreshTSB:        t.FreshTSB,
		ProductiveTSB:   t.ProductiveTSB,
	}
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `mapstructure:"distance_unit" json:"distance_unit" validate:"required|in:km,mi"`
}

// LoggerConfig selects zerolog level and output
type LoggerConfig struct {
	Level  string `mapstructure:"level" json:"level" validate:"required|in:trace,debug,info,warn,error"`
	Format string `mapstructure:"format" json:"format" validate:"required|in:console,json"`
	File   string `mapstructure:"file" json:"file"` // empty means stderr
}

// CacheConfig sizes the in-memory stream cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled"`
	SizeMB  int           `mapstructure:"size_mb" json:"size_mb" validate:"min:0"`
	TTL     time.Duration `mapstructure:"ttl" json:"ttl"`
}

// MetricsConfig toggles Prometheus instrumentation
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

// ServerConfig configures the coachd HTTP API
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" json:"addr" validate:"required"`
	JWTSecret       string        `mapstructure:"jwt_secret" json:"jwt_secret"`
	JWTIssuer       string        `mapstructure:"jwt_issuer" json:"jwt_issuer" validate:"required"`
	TokenTTL        time.Duration `mapstructure:"token_ttl" json:"token_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// CoachConfig points at an OpenAI-compatible chat completions endpoint
type CoachConfig struct {
	BaseURL     string        `mapstructure:"base_url" json:"base_url" validate:"required"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model" validate:"required"`
	MaxTokens   int           `mapstructure:"max_tokens" json:"max_tokens" validate:"required|min:1"`
	Temperature float64       `mapstructure:"temperature" json:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

// ProfileConfig locates rider profiles in MongoDB. An empty URI keeps
// profiles in memory.
type ProfileConfig struct {
	MongoURI   string `mapstructure:"mongo_uri" json:"mongo_uri"`
	Database   string `mapstructure:"database" json:"database"`
	Collection string `mapstructure:"collection" json:"collection"`
}

// EventsConfig configures Kafka publishing. No brokers disables it.
type EventsConfig struct {
	Brokers []string `mapstructure:"brokers" json:"brokers"`
	Topic   string   `mapstructure:"topic" json:"topic"`
}

// ArchiveConfig locates FIT files used as a fallback power source
type ArchiveConfig struct {
	Dir string   `mapstructure:"dir" json:"dir"`
	S3  S3Config `mapstructure:"s3" json:"s3"`
}

// S3Config is an S3 (or compatible) bucket of FIT files keyed by activity ID
type S3Config struct {
	Bucket          string `mapstructure:"bucket" json:"bucket"`
	Prefix          string `mapstructure:"prefix" json:"prefix"`
	Region          string `mapstructure:"region" json:"region"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style" json:"use_path_style"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	th := analysis.DefaultThresholds()
	return Config{
		Strava: StravaConfig{
			CallbackPort: 8089,
		},
		Athlete: AthleteConfig{
			FallbackFTP: 183,
		},
		Analysis: AnalysisConfig{
			WindowDays:        90,
			FTPLookbackDays:   90,
			StreamConcurrency: 4,
			Thresholds: ThresholdsConfig{
				OvertrainingTSB: th.OvertrainingTSB,
				HighFatigueATL:  th.HighFatigueATL,
				FreshTSB:        th.FreshTSB,
				ProductiveTSB:   th.ProductiveTSB,
			},
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
		},
		Cache: CacheConfig{
			Enabled: true,
			SizeMB:  32,
			TTL:     time.Hour,
		},
		Metrics: MetricsConfig{
			Namespace: "cyclecoach",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			JWTIssuer:       "cyclecoach",
			TokenTTL:        24 * time.Hour,
			ShutdownTimeout: 10 * time.Second,
		},
		Coach: CoachConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   700,
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		Profile: ProfileConfig{
			Database:   "cyclecoach",
			Collection: "profiles",
		},
		Events: EventsConfig{
			Topic: "training.snapshot",
		},
	}
}

// setDefaults registers every key with viper so env overrides apply even
// when the file omits the key
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("strava.client_id", d.Strava.ClientID)
	v.SetDefault("strava.client_secret", d.Strava.ClientSecret)
	v.SetDefault("strava.callback_port", d.Strava.CallbackPort)

	v.SetDefault("athlete.ftp", d.Athlete.FTP)
	v.SetDefault("athlete.fallback_ftp", d.Athlete.FallbackFTP)

	v.SetDefault("analysis.window_days", d.Analysis.WindowDays)
	v.SetDefault("analysis.ftp_lookback_days", d.Analysis.FTPLookbackDays)
	v.SetDefault("analysis.stream_concurrency", d.Analysis.StreamConcurrency)
	v.SetDefault("analysis.thresholds.overtraining_tsb", d.Analysis.Thresholds.OvertrainingTSB)
	v.SetDefault("analysis.thresholds.high_fatigue_atl", d.Analysis.Thresholds.HighFatigueATL)
	v.SetDefault("analysis.thresholds.fresh_tsb", d.Analysis.Thresholds.FreshTSB)
	v.SetDefault("analysis.thresholds.productive_tsb", d.Analysis.Thresholds.ProductiveTSB)

	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.file", d.Logger.File)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.size_mb", d.Cache.SizeMB)
	v.SetDefault("cache.ttl", d.Cache.TTL.String())

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.jwt_issuer", d.Server.JWTIssuer)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL.String())
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())

	v.SetDefault("coach.base_url", d.Coach.BaseURL)
	v.SetDefault("coach.api_key", d.Coach.APIKey)
	v.SetDefault("coach.model", d.Coach.Model)
	v.SetDefault("coach.max_tokens", d.Coach.MaxTokens)
	v.SetDefault("coach.temperature", d.Coach.Temperature)
	v.SetDefault("coach.timeout", d.Coach.Timeout.String())

	v.SetDefault("profile.mongo_uri", d.Profile.MongoURI)
	v.SetDefault("profile.database", d.Profile.Database)
	v.SetDefault("profile.collection", d.Profile.Collection)

	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	v.SetDefault("archive.dir", d.Archive.Dir)
	v.SetDefault("archive.s3.bucket", d.Archive.S3.Bucket)
	v.SetDefault("archive.s3.prefix", d.Archive.S3.Prefix)
	v.SetDefault("archive.s3.region", d.Archive.S3.Region)
	v.SetDefault("archive.s3.endpoint", d.Archive.S3.Endpoint)
	v.SetDefault("archive.s3.access_key_id", d.Archive.S3.AccessKeyID)
	v.SetDefault("archive.s3.secret_access_key", d.Archive.S3.SecretAccessKey)
	v.SetDefault("archive.s3.use_path_style", d.Archive.S3.UsePathStyle)
}

// Load reads the configuration from ~/.cyclecoach/config.json with
// COACH_* environment overrides
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration from path with COACH_* environment overrides
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNoConfig
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.cyclecoach/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes the configuration to path
func SaveFile(path string, cfg *Config) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava.ClientID = "YOUR_CLIENT_ID"
	example.Strava.ClientSecret = "YOUR_CLIENT_SECRET"

	return SaveFile(path, &example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	sections := []struct {
		name string
		ptr  any
	}{
		{"strava", &c.Strava},
		{"athlete", &c.Athlete},
		{"analysis", &c.Analysis},
		{"display", &c.Display},
		{"logger", &c.Logger},
		{"cache", &c.Cache},
		{"server", &c.Server},
		{"coach", &c.Coach},
	}
	for _, s := range sections {
		v := validate.Struct(s.ptr)
		if !v.Validate() {
			return fmt.Errorf("%s: %s", s.name, v.Errors.One())
		}
	}

	if err := c.Analysis.Thresholds.Thresholds().Validate(); err != nil {
		return fmt.Errorf("analysis.thresholds: %w", err)
	}

	if c.Archive.S3.Bucket != "" && c.Archive.S3.Region == "" {
		return errors.New("archive.s3.region is required when archive.s3.bucket is set")
	}

	return nil
}

// ValidateServer checks the settings coachd needs on top of Validate
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Server.JWTSecret) < 32 {
		return errors.New("server.jwt_secret must be at least 32 characters")
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cyclecoach"), nil
}
