// Package training fits the stacked ensemble on a feature table and
// persists the resulting artifact generation.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/logging"
	"matchup-forecast/internal/metrics"
	"matchup-forecast/internal/ml"
	"matchup-forecast/internal/observability"
	"matchup-forecast/internal/storage"
)

// ScalerFit selects which rows the standard scaler is fitted on.
type ScalerFit string

const (
	// ScalerFitFull fits the scaler on every row before the split.
	// Test-set statistics leak into the scaling; kept as the default
	// so results stay comparable with earlier runs.
	ScalerFitFull ScalerFit = "full"

	// ScalerFitTrain fits the scaler on the training partition only.
	ScalerFitTrain ScalerFit = "train"
)

// Defaults for a training run.
const (
	DefaultFolds        = 5
	DefaultTestFraction = 0.15
	DefaultSeed         = 42
)

// ParseScalerFit validates a scaler mode name.
func ParseScalerFit(s string) (ScalerFit, error) {
	switch ScalerFit(s) {
	case ScalerFitFull, ScalerFitTrain:
		return ScalerFit(s), nil
	default:
		return "", fmt.Errorf("%w: unknown scaler fit %q", domain.ErrInvalidInput, s)
	}
}

// Result is a fitted, not yet persisted, training run.
type Result struct {
	Set      *ml.ArtifactSet
	Manifest domain.ArtifactManifest
}

// Trainer fits and persists model generations.
type Trainer struct {
	store         storage.ModelStore
	folds         int
	testFraction  float64
	seed          uint64
	scalerFit     ScalerFit
	hyper         ml.Hyperparameters
	clock         func() time.Time
	newGeneration func() string
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// New creates a Trainer writing to store with default settings.
func New(store storage.ModelStore) *Trainer {
	return &Trainer{
		store:         store,
		folds:         DefaultFolds,
		testFraction:  DefaultTestFraction,
		seed:          DefaultSeed,
		scalerFit:     ScalerFitFull,
		hyper:         ml.DefaultHyperparameters(DefaultSeed),
		clock:         func() time.Time { return time.Now().UTC() },
		newGeneration: uuid.NewString,
		logger:        zap.NewNop(),
	}
}

// WithFolds sets the number of out-of-fold splits.
func (t *Trainer) WithFolds(k int) *Trainer {
	t.folds = k
	return t
}

// WithTestFraction sets the held-out share of rows.
func (t *Trainer) WithTestFraction(f float64) *Trainer {
	t.testFraction = f
	return t
}

// WithSeed sets the seed for fold shuffling and the random forest.
func (t *Trainer) WithSeed(seed uint64) *Trainer {
	t.seed = seed
	t.hyper.Seed = seed
	return t
}

// WithScalerFit selects the scaler fitting scope.
func (t *Trainer) WithScalerFit(mode ScalerFit) *Trainer {
	t.scalerFit = mode
	return t
}

// WithHyperparameters overrides learner settings. The trainer's seed is kept.
func (t *Trainer) WithHyperparameters(h ml.Hyperparameters) *Trainer {
	h.Seed = t.seed
	t.hyper = h
	return t
}

// WithClock sets a custom clock function for deterministic output.
func (t *Trainer) WithClock(clock func() time.Time) *Trainer {
	t.clock = clock
	return t
}

// WithGenerationFunc sets how generation ids are minted.
func (t *Trainer) WithGenerationFunc(fn func() string) *Trainer {
	t.newGeneration = fn
	return t
}

// WithLogger sets the logger.
func (t *Trainer) WithLogger(l *zap.Logger) *Trainer {
	t.logger = logging.OrNop(l)
	return t
}

// WithMetrics sets the metrics sink.
func (t *Trainer) WithMetrics(m *observability.Metrics) *Trainer {
	t.metrics = m
	return t
}

// Train fits a new generation on rows, persists it and returns its
// held-out metrics.
func (t *Trainer) Train(ctx context.Context, rows []*domain.FeatureRow) (*domain.TrainingMetrics, error) {
	res, err := t.Run(ctx, rows)
	if err != nil {
		return nil, err
	}
	m := res.Manifest.Metrics
	return &m, nil
}

// Run is Train returning the full result.
func (t *Trainer) Run(ctx context.Context, rows []*domain.FeatureRow) (*Result, error) {
	start := t.clock()

	res, err := t.Fit(ctx, rows)
	if err == nil {
		err = t.persist(ctx, res)
	}

	elapsed := t.clock().Sub(start)
	if err != nil {
		t.metrics.RecordTraining(elapsed, nil, start)
		t.logger.Error("training failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	t.metrics.RecordTraining(elapsed, &res.Manifest.Metrics, t.clock())
	t.logger.Info("training complete",
		zap.String("generation", res.Manifest.Generation),
		zap.Float64("accuracy", res.Manifest.Metrics.Accuracy),
		zap.Float64("auc", res.Manifest.Metrics.AUC),
		zap.Float64("f1", res.Manifest.Metrics.F1),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

// Fit runs the split, scaling, out-of-fold stacking and evaluation
// without touching the store.
func (t *Trainer) Fit(ctx context.Context, rows []*domain.FeatureRow) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no feature rows", domain.ErrInsufficientData)
	}
	if _, err := ParseScalerFit(string(t.scalerFit)); err != nil {
		return nil, err
	}

	train, test, err := ChronologicalSplit(rows, t.testFraction)
	if err != nil {
		return nil, err
	}
	if len(test) == 0 {
		return nil, fmt.Errorf("%w: empty test partition", domain.ErrInsufficientData)
	}
	if len(train) < t.folds {
		return nil, fmt.Errorf("%w: %d training rows for %d folds", domain.ErrInsufficientData, len(train), t.folds)
	}
	split := Summarize(train, test)

	t.logger.Info("training split",
		zap.Int("rows", len(rows)),
		zap.Int("train_rows", split.TrainRows),
		zap.Int("test_rows", split.TestRows),
		zap.String("scaler_fit", string(t.scalerFit)),
	)

	trainX, trainY := matrix(train)
	testX, testY := matrix(test)

	scaler := &ml.StandardScaler{}
	fitRows := trainX
	if t.scalerFit == ScalerFitFull {
		fitRows = append(append([][]float64{}, trainX...), testX...)
	}
	if err := scaler.Fit(fitRows); err != nil {
		return nil, &domain.ModelFitError{Learner: domain.ArtifactScaler, Err: err}
	}
	trainScaled, err := scaler.Transform(trainX)
	if err != nil {
		return nil, &domain.ModelFitError{Learner: domain.ArtifactScaler, Err: err}
	}
	testScaled, err := scaler.Transform(testX)
	if err != nil {
		return nil, &domain.ModelFitError{Learner: domain.ArtifactScaler, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folds, err := ml.KFold(len(trainScaled), t.folds, t.seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInsufficientData, err)
	}

	fitStart := t.clock()
	stack, err := ml.FitStack(trainScaled, trainY, folds, t.hyper)
	if err != nil {
		return nil, err
	}
	t.metrics.RecordFitPhase("stack", t.clock().Sub(fitStart))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proba, err := stack.PredictProba(testScaled)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	scores, err := metrics.Evaluate(proba, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	gen := t.newGeneration()
	return &Result{
		Set: &ml.ArtifactSet{Generation: gen, Scaler: scaler, Stack: stack},
		Manifest: domain.ArtifactManifest{
			Generation:   gen,
			TrainedAt:    t.clock(),
			Seed:         t.seed,
			Folds:        t.folds,
			TestFraction: t.testFraction,
			ScalerFit:    string(t.scalerFit),
			Split:        split,
			Metrics:      scores,
			Learners:     t.hyper.Settings(),
		},
	}, nil
}

func (t *Trainer) persist(ctx context.Context, res *Result) error {
	bundle, err := ml.EncodeArtifacts(res.Set, res.Manifest)
	if err != nil {
		return err
	}
	if err := t.store.Save(ctx, bundle); err != nil {
		return fmt.Errorf("save generation %s: %w", res.Manifest.Generation, err)
	}
	return nil
}
