package ml

import "matchup-forecast/internal/domain"

// Hyperparameters configures the base and meta learners of a stack.
type Hyperparameters struct {
	BoostRounds       int
	BoostLearningRate float64
	BoostMaxDepth     int
	ForestTrees       int
	ForestMaxDepth    int
	LogisticC         float64
	MetaC             float64
	Seed              uint64
}

// Settings returns h in the form recorded in a generation manifest.
func (h Hyperparameters) Settings() *domain.LearnerSettings {
	s := domain.LearnerSettings(h)
	return &s
}

// HyperparametersFromSettings restores the settings recorded by Settings.
func HyperparametersFromSettings(s domain.LearnerSettings) Hyperparameters {
	return Hyperparameters(s)
}

// DefaultHyperparameters returns the settings used when none are given.
func DefaultHyperparameters(seed uint64) Hyperparameters {
	return Hyperparameters{
		BoostRounds:       defaultBoostRounds,
		BoostLearningRate: defaultBoostLearningRate,
		BoostMaxDepth:     defaultBoostMaxDepth,
		ForestTrees:       defaultForestTrees,
		ForestMaxDepth:    defaultForestMaxDepth,
		LogisticC:         defaultLogisticC,
		MetaC:             defaultLogisticC,
		Seed:              seed,
	}
}

// BaseLearners returns factories for xgb, rf and lr, in meta-feature column order.
func (h Hyperparameters) BaseLearners() []NamedFactory {
	return []NamedFactory{
		{Name: domain.ArtifactXGB, New: func() Classifier {
			m := NewGradientBoosting()
			m.Rounds = h.BoostRounds
			m.LearningRate = h.BoostLearningRate
			m.MaxDepth = h.BoostMaxDepth
			return m
		}},
		{Name: domain.ArtifactRF, New: func() Classifier {
			m := NewRandomForest(h.Seed)
			m.NTrees = h.ForestTrees
			m.MaxDepth = h.ForestMaxDepth
			return m
		}},
		{Name: domain.ArtifactLR, New: func() Classifier {
			m := NewLogisticRegression()
			m.C = h.LogisticC
			return m
		}},
	}
}

// NewMeta returns an unfitted meta-learner.
func (h Hyperparameters) NewMeta() *LogisticRegression {
	m := NewLogisticRegression()
	m.C = h.MetaC
	return m
}
