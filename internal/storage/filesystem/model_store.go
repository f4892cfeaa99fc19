// Package filesystem stores model generations as JSON files on local disk.
//
// Layout under the root directory:
//
//	generations/<generation>/manifest.json
//	generations/<generation>/<artifact>.json
//	CURRENT
//
// A generation directory is staged under a temporary name and renamed
// into place once complete. CURRENT names the live generation and is
// itself replaced by rename, so a reader always resolves to a complete
// directory.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

const (
	generationsDir = "generations"
	currentFile    = "CURRENT"
	manifestFile   = "manifest.json"
	stagingPrefix  = ".staging-"
)

// ModelStore implements storage.ModelStore on a directory tree.
type ModelStore struct {
	root string
}

// NewModelStore creates the root directory if needed.
func NewModelStore(root string) (*ModelStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty artifact directory", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Join(root, generationsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &ModelStore{root: root}, nil
}

var _ storage.ModelStore = (*ModelStore)(nil)

// Save writes bundle as a new generation and points CURRENT at it.
// Returns ErrDuplicateKey if the generation directory already exists.
func (s *ModelStore) Save(ctx context.Context, bundle *domain.ArtifactBundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	gen := bundle.Manifest.Generation
	if strings.ContainsAny(gen, `/\`) || strings.HasPrefix(gen, ".") {
		return fmt.Errorf("%w: generation %q is not a valid directory name", storage.ErrInvalidInput, gen)
	}

	final := s.generationPath(gen)
	if _, err := os.Stat(final); err == nil {
		return storage.ErrDuplicateKey
	}

	staging := filepath.Join(s.root, generationsDir, stagingPrefix+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := writeJSON(filepath.Join(staging, manifestFile), bundle.Manifest); err != nil {
		return err
	}
	for _, name := range domain.RequiredArtifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(staging, name+".json"), bundle.Artifacts[name]); err != nil {
			return err
		}
	}

	if err := os.Rename(staging, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("publish generation %s: %w", gen, err)
	}

	return s.setCurrent(gen)
}

// Load reads the generation CURRENT points at.
func (s *ModelStore) Load(ctx context.Context) (*domain.ArtifactBundle, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, currentFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.NoGenerationError()
		}
		return nil, fmt.Errorf("read current generation: %w", err)
	}
	gen := strings.TrimSpace(string(raw))
	dir := s.generationPath(gen)

	bundle := &domain.ArtifactBundle{Artifacts: make(map[string]*domain.Artifact)}
	if err := readJSON(filepath.Join(dir, manifestFile), &bundle.Manifest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("generation %s: %w", gen, storage.NoGenerationError())
		}
		return nil, err
	}

	for _, name := range domain.RequiredArtifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var a domain.Artifact
		if err := readJSON(filepath.Join(dir, name+".json"), &a); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &domain.MissingArtifactError{Name: name}
			}
			return nil, err
		}
		bundle.Artifacts[name] = &a
	}

	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// Generations lists stored generation ids, excluding staging directories.
func (s *ModelStore) Generations() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, generationsDir))
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	var gens []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), stagingPrefix) {
			gens = append(gens, e.Name())
		}
	}
	return gens, nil
}

func (s *ModelStore) generationPath(gen string) string {
	return filepath.Join(s.root, generationsDir, gen)
}

func (s *ModelStore) setCurrent(gen string) error {
	tmp := filepath.Join(s.root, currentFile+"."+uuid.NewString())
	if err := os.WriteFile(tmp, []byte(gen+"\n"), 0o644); err != nil {
		return fmt.Errorf("write current pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.root, currentFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("swap current pointer: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
