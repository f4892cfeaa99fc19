package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// ModelStore implements storage.ModelStore using PostgreSQL.
// A generation's manifest, blobs and the current-generation pointer are
// written in one transaction, so readers never see a partial set.
type ModelStore struct {
	pool *Pool
}

// NewModelStore creates a new ModelStore.
func NewModelStore(pool *Pool) *ModelStore {
	return &ModelStore{pool: pool}
}

var _ storage.ModelStore = (*ModelStore)(nil)

// Save stores bundle and makes it the current generation.
// Returns ErrDuplicateKey if the generation id was already saved.
func (s *ModelStore) Save(ctx context.Context, bundle *domain.ArtifactBundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	manifest, err := json.Marshal(bundle.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	gen := bundle.Manifest.Generation

	return s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO model_generations (generation, manifest) VALUES ($1, $2)`, gen, manifest)
		if err != nil {
			return writeErr("insert model generation", err)
		}

		for _, name := range domain.RequiredArtifacts {
			a := bundle.Artifacts[name]
			_, err := tx.Exec(ctx, `
				INSERT INTO model_artifacts (generation, name, kind, payload)
				VALUES ($1, $2, $3, $4)
			`, gen, a.Name, a.Kind, []byte(a.Payload))
			if err != nil {
				return fmt.Errorf("insert artifact %s: %w", name, err)
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO model_current (id, generation) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET generation = EXCLUDED.generation, updated_at = now()
		`, gen)
		if err != nil {
			return fmt.Errorf("point current generation: %w", err)
		}
		return nil
	})
}

// Load retrieves the current generation from a single snapshot.
func (s *ModelStore) Load(ctx context.Context) (*domain.ArtifactBundle, error) {
	var bundle *domain.ArtifactBundle
	err := s.pool.inTx(ctx, snapshot, func(tx pgx.Tx) error {
		var err error
		bundle, err = loadCurrent(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func loadCurrent(ctx context.Context, tx pgx.Tx) (*domain.ArtifactBundle, error) {
	var (
		gen      string
		manifest []byte
	)
	err := tx.QueryRow(ctx, `
		SELECT g.generation, g.manifest
		FROM model_current c
		JOIN model_generations g ON g.generation = c.generation
		WHERE c.id = 1
	`).Scan(&gen, &manifest)
	if err != nil {
		if noRows(err) {
			return nil, storage.NoGenerationError()
		}
		return nil, fmt.Errorf("get current generation: %w", err)
	}

	bundle := &domain.ArtifactBundle{Artifacts: make(map[string]*domain.Artifact)}
	if err := json.Unmarshal(manifest, &bundle.Manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", gen, err)
	}

	rows, err := tx.Query(ctx, `SELECT name, kind, payload FROM model_artifacts WHERE generation = $1`, gen)
	if err != nil {
		return nil, fmt.Errorf("get artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a := &domain.Artifact{Generation: gen}
		var payload []byte
		if err := rows.Scan(&a.Name, &a.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		a.Payload = payload
		bundle.Artifacts[a.Name] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifact rows: %w", err)
	}
	return bundle, nil
}
