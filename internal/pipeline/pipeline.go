// Package pipeline runs the forecast stages end to end: ingest games,
// build and persist features, train a generation, predict matchups and
// write the output tables and report.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/features"
	"matchup-forecast/internal/logging"
	"matchup-forecast/internal/observability"
	"matchup-forecast/internal/prediction"
	"matchup-forecast/internal/reporting"
	"matchup-forecast/internal/storage"
	"matchup-forecast/internal/tables"
	"matchup-forecast/internal/training"
)

// Stage names used in logs and metrics.
const (
	StageIngest   = "ingest"
	StageFeatures = "features"
	StageTrain    = "train"
	StagePredict  = "predict"
	StageReport   = "report"
)

// Output file names written under the output directory.
const (
	FeaturesFile    = "features.csv"
	PredictionsFile = "predictions.csv"
	ReportFile      = "TRAINING_REPORT.md"
	MetricsFile     = "training_metrics.csv"
)

// Result summarizes a full run.
type Result struct {
	GamesIngested int
	FeatureRows   int
	FeatureDigest string // sha256 of the feature table CSV
	Generation    string
	Metrics       domain.TrainingMetrics
	Predictions   []domain.PredictionRow
	Report        *reporting.Report
	OutputDir     string
}

// Pipeline wires stores, trainer and predictor together. Stages run
// synchronously in the caller's goroutine.
type Pipeline struct {
	games       storage.GameStore
	features    storage.FeatureStore
	models      storage.ModelStore
	predictions storage.PredictionStore // optional

	trainer  *training.Trainer
	resolver prediction.FeatureResolver

	outputDir string
	clock     func() time.Time
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// New creates a pipeline with a default trainer and history-based
// feature resolution. No files are written until WithOutputDir is set.
func New(games storage.GameStore, feats storage.FeatureStore, models storage.ModelStore) *Pipeline {
	return &Pipeline{
		games:    games,
		features: feats,
		models:   models,
		trainer:  training.New(models),
		resolver: prediction.NewHistoryResolver(games),
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   zap.NewNop(),
	}
}

// WithPredictionStore persists served predictions under their generation.
func (p *Pipeline) WithPredictionStore(s storage.PredictionStore) *Pipeline {
	p.predictions = s
	return p
}

// WithTrainer replaces the default trainer. It should save to the same
// model store the pipeline reads from.
func (p *Pipeline) WithTrainer(t *training.Trainer) *Pipeline {
	p.trainer = t
	return p
}

// WithResolver sets how serving feature vectors are produced.
func (p *Pipeline) WithResolver(r prediction.FeatureResolver) *Pipeline {
	p.resolver = r
	return p
}

// WithOutputDir enables writing tables and reports to dir.
func (p *Pipeline) WithOutputDir(dir string) *Pipeline {
	p.outputDir = dir
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(l *zap.Logger) *Pipeline {
	p.logger = logging.OrNop(l)
	return p
}

// WithMetrics sets the metrics sink.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Run executes every stage. games may be nil when the game store is
// already populated; matchups may be empty to skip forecasting output.
func (p *Pipeline) Run(ctx context.Context, games []*domain.GameRecord, matchups []domain.Matchup) (*Result, error) {
	res := &Result{OutputDir: p.outputDir}

	if games != nil {
		n, err := p.Ingest(ctx, games)
		if err != nil {
			return nil, err
		}
		res.GamesIngested = n
	}

	rows, digest, err := p.BuildFeatures(ctx)
	if err != nil {
		return nil, err
	}
	res.FeatureRows = len(rows)
	res.FeatureDigest = digest

	trained, err := p.Train(ctx)
	if err != nil {
		return nil, err
	}
	res.Generation = trained.Manifest.Generation
	res.Metrics = trained.Manifest.Metrics

	if res.Predictions, err = p.Predict(ctx, matchups); err != nil {
		return nil, err
	}

	if res.Report, err = p.Report(ctx); err != nil {
		return nil, err
	}

	p.logger.Info("pipeline complete",
		zap.Int("games_ingested", res.GamesIngested),
		zap.Int("feature_rows", res.FeatureRows),
		zap.String("generation", res.Generation),
		zap.Int("predictions", len(res.Predictions)),
	)
	return res, nil
}

// Ingest stores games not already present, keeping the first occurrence
// of each (date, home_team, away_team). Returns the number inserted.
func (p *Pipeline) Ingest(ctx context.Context, games []*domain.GameRecord) (n int, err error) {
	defer p.stage(StageIngest, p.clock())(&err)

	existing, err := p.games.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load stored games: %w", err)
	}
	merged := features.Dedupe(append(existing, games...))
	fresh := merged[len(features.Dedupe(existing)):]
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := p.games.InsertBulk(ctx, fresh); err != nil {
		return 0, fmt.Errorf("insert games: %w", err)
	}
	return len(fresh), nil
}

// BuildFeatures rebuilds the feature table from every stored game and
// replaces the feature store contents. Returns the rows and the sha256
// of their CSV encoding.
func (p *Pipeline) BuildFeatures(ctx context.Context) (rows []*domain.FeatureRow, digest string, err error) {
	defer p.stage(StageFeatures, p.clock())(&err)

	games, err := p.games.GetAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load games: %w", err)
	}
	rows, err = features.BuildFeatures(games)
	if err != nil {
		return nil, "", err
	}
	if err := p.features.ReplaceAll(ctx, rows); err != nil {
		return nil, "", fmt.Errorf("store features: %w", err)
	}
	p.metrics.RecordFeatures(len(games), len(rows))

	var buf bytes.Buffer
	if err := tables.WriteFeatures(&buf, rows); err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	digest = hex.EncodeToString(sum[:])

	if err := p.writeFile(FeaturesFile, buf.Bytes()); err != nil {
		return nil, "", err
	}
	return rows, digest, nil
}

// Train fits a generation on the stored feature table.
func (p *Pipeline) Train(ctx context.Context) (res *training.Result, err error) {
	defer p.stage(StageTrain, p.clock())(&err)

	rows, err := p.features.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	return p.trainer.Run(ctx, rows)
}

// Predict forecasts matchups from the current generation, stores them
// when a prediction store is configured and writes the prediction table.
func (p *Pipeline) Predict(ctx context.Context, matchups []domain.Matchup) (rows []domain.PredictionRow, err error) {
	defer p.stage(StagePredict, p.clock())(&err)

	predictor := prediction.New(p.models, p.resolver).WithLogger(p.logger).WithMetrics(p.metrics)
	forecast, err := predictor.Forecast(ctx, matchups)
	if err != nil {
		return nil, err
	}
	rows = forecast.Rows

	if p.predictions != nil && len(rows) > 0 {
		stored := make([]*domain.PredictionRow, len(rows))
		for i := range rows {
			stored[i] = &rows[i]
		}
		if err := p.predictions.InsertBulk(ctx, forecast.Generation, stored); err != nil {
			return nil, fmt.Errorf("store predictions: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := tables.WritePredictions(&buf, rows); err != nil {
		return nil, err
	}
	if err := p.writeFile(PredictionsFile, buf.Bytes()); err != nil {
		return nil, err
	}
	return rows, nil
}

// Report renders the training report for the current generation.
func (p *Pipeline) Report(ctx context.Context) (report *reporting.Report, err error) {
	defer p.stage(StageReport, p.clock())(&err)

	report, err = reporting.NewGenerator(p.games, p.features, p.models, p.predictions).
		WithClock(p.clock).
		Generate(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.writeFile(ReportFile, []byte(reporting.RenderMarkdown(report))); err != nil {
		return nil, err
	}
	if err := p.writeFile(MetricsFile, []byte(reporting.RenderMetricsCSV(report))); err != nil {
		return nil, err
	}
	return report, nil
}

// stage returns a deferred hook that logs and records a stage outcome.
func (p *Pipeline) stage(name string, start time.Time) func(*error) {
	return func(errp *error) {
		elapsed := p.clock().Sub(start)
		p.metrics.RecordPipelineStage(name, elapsed, *errp)
		if *errp != nil {
			p.logger.Error("stage failed", zap.String("stage", name), zap.Error(*errp))
			return
		}
		p.logger.Info("stage complete", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	}
}

func (p *Pipeline) writeFile(name string, data []byte) error {
	if p.outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(p.outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
