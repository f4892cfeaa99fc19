package domain

import (
	"errors"
	"fmt"
)

// Pipeline errors. Use errors.Is to classify; the typed errors below wrap them.
var (
	// ErrInvalidInput is returned when an input table is absent or unreadable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when input is present but too small to train on.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMissingArtifact is returned when a model generation lacks a required artifact.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrModelFit is returned when a base or meta learner fails to fit.
	ErrModelFit = errors.New("model fit failed")

	// ErrGenerationMismatch is returned when artifacts from different training runs are mixed.
	ErrGenerationMismatch = errors.New("artifact generation mismatch")
)

// MissingArtifactError names the artifact that could not be found.
type MissingArtifactError struct {
	Name string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact: %s", e.Name)
}

func (e *MissingArtifactError) Unwrap() error { return ErrMissingArtifact }

// ModelFitError wraps a learner failure with the learner's name.
type ModelFitError struct {
	Learner string
	Err     error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("fit %s: %v", e.Learner, e.Err)
}

func (e *ModelFitError) Unwrap() []error { return []error{ErrModelFit, e.Err} }

// GenerationMismatchError reports an artifact written by a different training run.
type GenerationMismatchError struct {
	Name     string
	Expected string
	Actual   string
}

func (e *GenerationMismatchError) Error() string {
	return fmt.Sprintf("artifact %s: generation %q, expected %q", e.Name, e.Actual, e.Expected)
}

func (e *GenerationMismatchError) Unwrap() error { return ErrGenerationMismatch }
