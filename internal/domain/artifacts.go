package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Artifact names. A generation holds exactly these five blobs.
const (
	ArtifactXGB    = "xgb"
	ArtifactRF     = "rf"
	ArtifactLR     = "lr"
	ArtifactMeta   = "meta_stacker"
	ArtifactScaler = "scaler"
)

// RequiredArtifacts lists every artifact a generation must contain,
// base learners first in meta-feature column order.
var RequiredArtifacts = []string{ArtifactXGB, ArtifactRF, ArtifactLR, ArtifactMeta, ArtifactScaler}

// BaseLearners lists base learner artifacts in meta-feature column order.
var BaseLearners = []string{ArtifactXGB, ArtifactRF, ArtifactLR}

// ArtifactManifest is the generation marker written alongside the blobs.
type ArtifactManifest struct {
	Generation   string          `json:"generation"`
	TrainedAt    time.Time       `json:"trained_at"`
	Seed         uint64          `json:"seed"`
	Folds        int             `json:"folds"`
	TestFraction float64         `json:"test_fraction"`
	ScalerFit    string          `json:"scaler_fit"`
	Split        SplitSummary    `json:"split"`
	Metrics      TrainingMetrics `json:"metrics"`

	// Nil for generations saved before learner settings were recorded.
	Learners *LearnerSettings `json:"learners,omitempty"`
}

// LearnerSettings are the base and meta learner hyperparameters a
// generation was trained with.
type LearnerSettings struct {
	BoostRounds       int     `json:"boost_rounds"`
	BoostLearningRate float64 `json:"boost_learning_rate"`
	BoostMaxDepth     int     `json:"boost_max_depth"`
	ForestTrees       int     `json:"forest_trees"`
	ForestMaxDepth    int     `json:"forest_max_depth"`
	LogisticC         float64 `json:"logistic_c"`
	MetaC             float64 `json:"meta_c"`
	Seed              uint64  `json:"seed"`
}

// Artifact is one serialized model component tagged with its generation.
type Artifact struct {
	Name       string          `json:"name"`
	Generation string          `json:"generation"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// ArtifactBundle is the unit ModelStore reads and writes.
type ArtifactBundle struct {
	Manifest  ArtifactManifest
	Artifacts map[string]*Artifact
}

// Validate checks that all required artifacts are present and belong to
// the manifest's generation.
func (b *ArtifactBundle) Validate() error {
	if b == nil {
		return &MissingArtifactError{Name: RequiredArtifacts[0]}
	}
	if b.Manifest.Generation == "" {
		return fmt.Errorf("%w: empty generation", ErrInvalidInput)
	}
	for _, name := range RequiredArtifacts {
		a, ok := b.Artifacts[name]
		if !ok || a == nil {
			return &MissingArtifactError{Name: name}
		}
		if a.Generation != b.Manifest.Generation {
			return &GenerationMismatchError{
				Name:     name,
				Expected: b.Manifest.Generation,
				Actual:   a.Generation,
			}
		}
	}
	return nil
}
