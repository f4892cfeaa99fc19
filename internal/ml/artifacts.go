package ml

import (
	"encoding/json"
	"fmt"

	"matchup-forecast/internal/domain"
)

// ArtifactSet is a loaded, ready-to-predict model generation.
type ArtifactSet struct {
	Generation string
	Scaler     *StandardScaler
	Stack      *Stack
}

// PredictProba scales raw predictor rows and returns the meta probability per row.
func (s *ArtifactSet) PredictProba(X [][]float64) ([]float64, error) {
	scaled, err := s.Scaler.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", domain.ArtifactScaler, err)
	}
	return s.Stack.PredictProba(scaled)
}

type kinded interface {
	Kind() string
}

// EncodeArtifacts serializes every component of set into a bundle
// tagged with manifest.Generation.
func EncodeArtifacts(set *ArtifactSet, manifest domain.ArtifactManifest) (*domain.ArtifactBundle, error) {
	if set == nil || set.Scaler == nil || set.Stack == nil {
		return nil, fmt.Errorf("%w: incomplete artifact set", domain.ErrInvalidInput)
	}
	components := map[string]kinded{
		domain.ArtifactXGB:    set.Stack.Boosting,
		domain.ArtifactRF:     set.Stack.Forest,
		domain.ArtifactLR:     set.Stack.Logistic,
		domain.ArtifactMeta:   set.Stack.Meta,
		domain.ArtifactScaler: set.Scaler,
	}

	bundle := &domain.ArtifactBundle{
		Manifest:  manifest,
		Artifacts: make(map[string]*domain.Artifact, len(components)),
	}
	for _, name := range domain.RequiredArtifacts {
		payload, err := json.Marshal(components[name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		bundle.Artifacts[name] = &domain.Artifact{
			Name:       name,
			Generation: manifest.Generation,
			Kind:       components[name].Kind(),
			Payload:    payload,
		}
	}
	return bundle, nil
}

// DecodeArtifacts validates the bundle and rebuilds the artifact set.
func DecodeArtifacts(bundle *domain.ArtifactBundle) (*ArtifactSet, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	stack := &Stack{
		Boosting: &GradientBoosting{},
		Forest:   &RandomForest{},
		Logistic: &LogisticRegression{},
		Meta:     &LogisticRegression{},
	}
	scaler := &StandardScaler{}
	targets := map[string]kinded{
		domain.ArtifactXGB:    stack.Boosting,
		domain.ArtifactRF:     stack.Forest,
		domain.ArtifactLR:     stack.Logistic,
		domain.ArtifactMeta:   stack.Meta,
		domain.ArtifactScaler: scaler,
	}

	for _, name := range domain.RequiredArtifacts {
		a := bundle.Artifacts[name]
		target := targets[name]
		if a.Kind != target.Kind() {
			return nil, fmt.Errorf("%w: artifact %s has kind %q, expected %q",
				domain.ErrInvalidInput, name, a.Kind, target.Kind())
		}
		if err := json.Unmarshal(a.Payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}

	return &ArtifactSet{
		Generation: bundle.Manifest.Generation,
		Scaler:     scaler,
		Stack:      stack,
	}, nil
}
