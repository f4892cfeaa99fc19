package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"matchup-forecast/internal/config"
	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/logging"
	"matchup-forecast/internal/ml"
	"matchup-forecast/internal/observability"
	"matchup-forecast/internal/pipeline"
	"matchup-forecast/internal/prediction"
	"matchup-forecast/internal/storage"
	"matchup-forecast/internal/storage/clickhouse"
	"matchup-forecast/internal/storage/filesystem"
	"matchup-forecast/internal/storage/memory"
	"matchup-forecast/internal/storage/migrations"
	"matchup-forecast/internal/storage/postgres"
	"matchup-forecast/internal/training"
)

const serviceName = "forecast"

// app holds the process-wide dependencies of one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics

	games       storage.GameStore
	features    storage.FeatureStore
	models      storage.ModelStore
	predictions storage.PredictionStore

	closers []func()
}

// bindFlags registers the flags shared by every command, defaulting to
// values from cfg.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.GamesCSV, "games", cfg.GamesCSV, "Input game table CSV")
	fs.StringVar(&cfg.FeaturesCSV, "features", cfg.FeaturesCSV, "Feature table CSV")
	fs.StringVar(&cfg.MatchupsCSV, "matchups", cfg.MatchupsCSV, "Upcoming matchups CSV")
	fs.StringVar(&cfg.PredictionsCSV, "predictions", cfg.PredictionsCSV, "Prediction table CSV output (default stdout)")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Output directory for tables and reports")
	fs.StringVar(&cfg.ArtifactDir, "artifact-dir", cfg.ArtifactDir, "Filesystem model store root")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN (games, predictions, models)")
	fs.StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse DSN (features)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for folds and learners")
	fs.IntVar(&cfg.Folds, "folds", cfg.Folds, "Out-of-fold stacking folds")
	fs.Float64Var(&cfg.TestFraction, "test-fraction", cfg.TestFraction, "Chronological held-out fraction")
	fs.StringVar(&cfg.ScalerFit, "scaler-fit", cfg.ScalerFit, "Scaler fit rows: full or train")
	fs.StringVar(&cfg.FeatureMode, "feature-mode", cfg.FeatureMode, "Serving features: history or placeholder")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
}

// parseConfig loads layered config then applies command flags.
func parseConfig(name string, args []string, extra func(*flag.FlagSet)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	bindFlags(fs, cfg)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the logger, metrics and stores selected by cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(serviceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics("matchup_forecast", prometheus.DefaultRegisterer),
	}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	cfg := a.cfg

	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		a.games = postgres.NewGameStore(pool)
		a.predictions = postgres.NewPredictionStore(pool)
		a.models = postgres.NewModelStore(pool)
		a.logger.Info("using postgres stores")
	} else {
		a.games = memory.NewGameStore()
		a.predictions = memory.NewPredictionStore()
		models, err := filesystem.NewModelStore(cfg.ArtifactDir)
		if err != nil {
			return err
		}
		a.models = models
		a.logger.Info("using filesystem model store", zap.String("dir", cfg.ArtifactDir))
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.features = clickhouse.NewFeatureStore(conn)
		a.logger.Info("using clickhouse feature store")
	} else {
		a.features = memory.NewFeatureStore()
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(prometheus.DefaultGatherer))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) trainer() (*training.Trainer, error) {
	mode, err := training.ParseScalerFit(a.cfg.ScalerFit)
	if err != nil {
		return nil, err
	}
	return training.New(a.models).
		WithFolds(a.cfg.Folds).
		WithTestFraction(a.cfg.TestFraction).
		WithSeed(a.cfg.Seed).
		WithScalerFit(mode).
		WithHyperparameters(ml.DefaultHyperparameters(a.cfg.Seed)).
		WithLogger(a.logger).
		WithMetrics(a.metrics), nil
}

func (a *app) resolver() prediction.FeatureResolver {
	if a.cfg.FeatureMode == config.FeatureModePlaceholder {
		a.logger.Warn("placeholder features: every matchup receives the same forecast")
		return prediction.PlaceholderResolver{}
	}
	return prediction.NewHistoryResolver(a.games)
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	t, err := a.trainer()
	if err != nil {
		return nil, err
	}
	return pipeline.New(a.games, a.features, a.models).
		WithPredictionStore(a.predictions).
		WithTrainer(t).
		WithResolver(a.resolver()).
		WithOutputDir(a.cfg.OutputDir).
		WithLogger(a.logger).
		WithMetrics(a.metrics), nil
}

func printMetrics(m domain.TrainingMetrics) {
	fmt.Printf("  Accuracy: %.4f\n", m.Accuracy)
	fmt.Printf("  AUC:      %.4f\n", m.AUC)
	fmt.Printf("  F1:       %.4f\n", m.F1)
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
