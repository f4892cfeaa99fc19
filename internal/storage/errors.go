package storage

import (
	"errors"
	"fmt"

	"matchup-forecast/internal/domain"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = domain.ErrInvalidInput
)

// NoGenerationError is returned by ModelStore.Load before anything was saved.
// Every artifact is missing; the first required one is reported.
func NoGenerationError() error {
	return fmt.Errorf("no model generation saved: %w: %w",
		ErrNotFound, &domain.MissingArtifactError{Name: domain.RequiredArtifacts[0]})
}
