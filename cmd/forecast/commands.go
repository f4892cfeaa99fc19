package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"matchup-forecast/internal/config"
	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/fixtures"
	"matchup-forecast/internal/pipeline"
	"matchup-forecast/internal/tables"
	"matchup-forecast/internal/verification"
)

// demoFlags selects generated fixture data instead of input tables.
type demoFlags struct {
	rounds int
}

func (d *demoFlags) bind(fs *flag.FlagSet) {
	fs.IntVar(&d.rounds, "demo-rounds", 0, "Generate a synthetic season of this many rounds instead of reading -games")
}

func runFeatures(ctx context.Context, args []string) error {
	var demo demoFlags
	cfg, err := parseConfig("features", args, demo.bind)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}
	if err := ingest(ctx, a, p, demo); err != nil {
		return err
	}
	rows, digest, err := p.BuildFeatures(ctx)
	if err != nil {
		return err
	}
	if err := writeFeatures(cfg.FeaturesCSV, rows); err != nil {
		return err
	}

	fmt.Printf("Feature table built: %d rows (sha256 %s)\n", len(rows), digest)
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	var demo demoFlags
	cfg, err := parseConfig("train", args, demo.bind)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}

	switch {
	case cfg.FeaturesCSV != "":
		rows, err := readFeatures(cfg.FeaturesCSV)
		if err != nil {
			return err
		}
		if err := a.features.ReplaceAll(ctx, rows); err != nil {
			return fmt.Errorf("store features: %w", err)
		}
	case cfg.GamesCSV != "" || demo.rounds > 0:
		if err := ingest(ctx, a, p, demo); err != nil {
			return err
		}
		if _, _, err := p.BuildFeatures(ctx); err != nil {
			return err
		}
	}

	res, err := p.Train(ctx)
	if err != nil {
		return err
	}
	if _, err := p.Report(ctx); err != nil {
		return err
	}

	fmt.Printf("Trained generation %s (%d train / %d test rows, scaler fit %s)\n",
		res.Manifest.Generation, res.Manifest.Split.TrainRows, res.Manifest.Split.TestRows, res.Manifest.ScalerFit)
	printMetrics(res.Manifest.Metrics)
	return nil
}

func runPredict(ctx context.Context, args []string) error {
	var demo demoFlags
	cfg, err := parseConfig("predict", args, demo.bind)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}
	// History features need the game table in this process.
	if cfg.FeatureMode == config.FeatureModeHistory {
		if err := ingest(ctx, a, p, demo); err != nil {
			return err
		}
	}

	matchups, err := loadMatchups(cfg, demo)
	if err != nil {
		return err
	}
	rows, err := p.Predict(ctx, matchups)
	if err != nil {
		return err
	}
	return writePredictions(cfg.PredictionsCSV, rows)
}

func runAll(ctx context.Context, args []string) error {
	var demo demoFlags
	cfg, err := parseConfig("run", args, demo.bind)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}
	if err := ingest(ctx, a, p, demo); err != nil {
		return err
	}
	matchups, err := loadMatchups(cfg, demo)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, nil, matchups)
	if err != nil {
		return err
	}

	fmt.Println("=== Forecast Pipeline ===")
	fmt.Printf("  Feature rows: %d\n", res.FeatureRows)
	fmt.Printf("  Generation:   %s\n", res.Generation)
	printMetrics(res.Metrics)
	fmt.Printf("  Predictions:  %d\n", len(res.Predictions))
	if res.OutputDir != "" {
		fmt.Printf("  Outputs:      %s/{%s,%s,%s,%s}\n", res.OutputDir,
			pipeline.FeaturesFile, pipeline.PredictionsFile, pipeline.ReportFile, pipeline.MetricsFile)
	}
	return nil
}

func runVerify(ctx context.Context, args []string) error {
	cfg, err := parseConfig("verify", args, nil)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.FeaturesCSV != "" {
		rows, err := readFeatures(cfg.FeaturesCSV)
		if err != nil {
			return err
		}
		if err := a.features.ReplaceAll(ctx, rows); err != nil {
			return fmt.Errorf("store features: %w", err)
		}
	}

	report, err := verification.New(a.features, a.models).Verify(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Generation %s over %d feature rows: ", report.Generation, report.Rows)
	if report.Match {
		fmt.Println("REPRODUCED")
		return nil
	}
	fmt.Println("DIVERGED")
	for _, d := range report.Divergences {
		fmt.Printf("  - %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
	}
	return fmt.Errorf("generation %s is not reproducible", report.Generation)
}

// ingest loads games from -games or a generated season into the game store.
func ingest(ctx context.Context, a *app, p *pipeline.Pipeline, demo demoFlags) error {
	var (
		games []*domain.GameRecord
		err   error
	)
	switch {
	case a.cfg.GamesCSV != "":
		games, err = readGames(a.cfg.GamesCSV)
	case demo.rounds > 0:
		games, err = fixtures.Season(fixtures.DefaultTeams, demo.rounds, a.cfg.Seed)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	n, err := p.Ingest(ctx, games)
	if err != nil {
		return err
	}
	a.logger.Info("games ingested", zap.Int("read", len(games)), zap.Int("inserted", n))
	return nil
}

func loadMatchups(cfg *config.Config, demo demoFlags) ([]domain.Matchup, error) {
	if cfg.MatchupsCSV != "" {
		f, err := openInput(cfg.MatchupsCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return tables.ReadMatchups(f)
	}
	if demo.rounds > 0 {
		return fixtures.Upcoming(fixtures.DefaultTeams, demo.rounds), nil
	}
	return nil, errors.New("no matchups: set -matchups or -demo-rounds")
}

func readGames(path string) ([]*domain.GameRecord, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tables.ReadGames(f)
}

func readFeatures(path string) ([]*domain.FeatureRow, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tables.ReadFeatures(f)
}

func writeFeatures(path string, rows []*domain.FeatureRow) error {
	if path == "" {
		return nil
	}
	return writeTo(path, func(w io.Writer) error { return tables.WriteFeatures(w, rows) })
}

func writePredictions(path string, rows []domain.PredictionRow) error {
	if path == "" {
		return tables.WritePredictions(os.Stdout, rows)
	}
	return writeTo(path, func(w io.Writer) error { return tables.WritePredictions(w, rows) })
}

func writeTo(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
