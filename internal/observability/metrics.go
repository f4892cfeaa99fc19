// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchup-forecast/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Feature metrics
	GamesLoaded      prometheus.Counter
	FeatureRowsBuilt prometheus.Counter

	// Training metrics
	TrainingRunsTotal  *prometheus.CounterVec
	TrainingDuration   prometheus.Histogram
	LearnerFitDuration *prometheus.HistogramVec
	EvaluationScore    *prometheus.GaugeVec

	// Serving metrics
	PredictionsServed  *prometheus.CounterVec
	ArtifactLoadErrors *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulTraining prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered against reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "matchup_forecast"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		GamesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "games_loaded_total",
			Help:      "Total number of game records read from the input table",
		}),
		FeatureRowsBuilt: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows_built_total",
			Help:      "Total number of feature rows produced",
		}),

		TrainingRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "Total number of training runs by status",
		}, []string{"status"}),
		TrainingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Wall time of a full training run",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LearnerFitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "learner_fit_duration_seconds",
			Help:      "Wall time spent fitting the stacked ensemble by phase",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		EvaluationScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "evaluation_score",
			Help:      "Held-out score of the latest trained generation",
		}, []string{"metric"}),

		PredictionsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "served_total",
			Help:      "Total number of predictions by predicted winner",
		}, []string{"winner"}),
		ArtifactLoadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "artifact_load_errors_total",
			Help:      "Total number of failed artifact loads by reason",
		}, []string{"reason"}),

		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline stage runs by status",
		}, []string{"stage", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),

		LastSuccessfulTraining: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_training_timestamp",
			Help:      "Unix timestamp of the last successful training run",
		}),
	}
}

// Handler returns an HTTP handler serving metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordFeatures counts games read and feature rows produced.
func (m *Metrics) RecordFeatures(games, rows int) {
	if m == nil {
		return
	}
	m.GamesLoaded.Add(float64(games))
	m.FeatureRowsBuilt.Add(float64(rows))
}

// RecordFitPhase records how long one ensemble phase took.
func (m *Metrics) RecordFitPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.LearnerFitDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordTraining records a finished training run. scores is nil on failure.
func (m *Metrics) RecordTraining(d time.Duration, scores *domain.TrainingMetrics, at time.Time) {
	if m == nil {
		return
	}
	m.TrainingDuration.Observe(d.Seconds())
	if scores == nil {
		m.TrainingRunsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.TrainingRunsTotal.WithLabelValues("success").Inc()
	m.EvaluationScore.WithLabelValues("accuracy").Set(scores.Accuracy)
	m.EvaluationScore.WithLabelValues("auc").Set(scores.AUC)
	m.EvaluationScore.WithLabelValues("f1").Set(scores.F1)
	m.LastSuccessfulTraining.Set(float64(at.Unix()))
}

// RecordPredictions counts served predictions by winner.
func (m *Metrics) RecordPredictions(rows []domain.PredictionRow) {
	if m == nil {
		return
	}
	for _, r := range rows {
		m.PredictionsServed.WithLabelValues(r.PredictedWinner).Inc()
	}
}

// RecordArtifactLoadError counts a failed artifact load.
func (m *Metrics) RecordArtifactLoadError(reason string) {
	if m == nil {
		return
	}
	m.ArtifactLoadErrors.WithLabelValues(reason).Inc()
}

// RecordPipelineStage records one pipeline stage run.
func (m *Metrics) RecordPipelineStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.PipelineRunsTotal.WithLabelValues(stage, status).Inc()
	m.PipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}
