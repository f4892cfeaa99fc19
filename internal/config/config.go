// Package config defines the forecast tool configuration and its loader.
package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"matchup-forecast/internal/training"
)

// Feature modes for serving.
const (
	FeatureModeHistory     = "history"
	FeatureModePlaceholder = "placeholder"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Env selects the logger preset; "local" enables development output.
	Env string `koanf:"env"`

	// Table locations. Empty paths disable the corresponding read or write.
	GamesCSV       string `koanf:"games_csv"`
	FeaturesCSV    string `koanf:"features_csv"`
	MatchupsCSV    string `koanf:"matchups_csv"`
	PredictionsCSV string `koanf:"predictions_csv"`
	OutputDir      string `koanf:"output_dir"`

	// ArtifactDir is the filesystem model store root, used unless PostgresDSN is set.
	ArtifactDir string `koanf:"artifact_dir"`
	// PostgresDSN enables the postgres game, prediction and model stores.
	PostgresDSN string `koanf:"postgres_dsn"`
	// ClickHouseDSN enables the clickhouse feature store.
	ClickHouseDSN string `koanf:"clickhouse_dsn"`

	Seed         uint64  `koanf:"seed"`
	Folds        int     `koanf:"folds"`
	TestFraction float64 `koanf:"test_fraction"`
	// ScalerFit is "full" (scaler sees every row) or "train".
	ScalerFit string `koanf:"scaler_fit"`
	// FeatureMode is "history" or "placeholder".
	FeatureMode string `koanf:"feature_mode"`

	// MetricsAddr serves /metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		Env:          "production",
		ArtifactDir:  "artifacts",
		OutputDir:    "output",
		Seed:         training.DefaultSeed,
		Folds:        training.DefaultFolds,
		TestFraction: training.DefaultTestFraction,
		ScalerFit:    string(training.ScalerFitFull),
		FeatureMode:  FeatureModeHistory,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.Folds < 2 {
		return fmt.Errorf("%w: folds must be at least 2, got %d", ErrInvalidConfig, c.Folds)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("%w: test_fraction must be in (0,1), got %v", ErrInvalidConfig, c.TestFraction)
	}
	if _, err := training.ParseScalerFit(c.ScalerFit); err != nil {
		return fmt.Errorf("%w: scaler_fit: %v", ErrInvalidConfig, err)
	}
	switch c.FeatureMode {
	case FeatureModeHistory, FeatureModePlaceholder:
	default:
		return fmt.Errorf("%w: feature_mode must be %q or %q, got %q",
			ErrInvalidConfig, FeatureModeHistory, FeatureModePlaceholder, c.FeatureMode)
	}
	if c.PostgresDSN == "" && c.ArtifactDir == "" {
		return fmt.Errorf("%w: artifact_dir or postgres_dsn is required", ErrInvalidConfig)
	}
	return nil
}
