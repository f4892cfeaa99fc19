package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

func testBundle(gen string) *domain.ArtifactBundle {
	b := &domain.ArtifactBundle{
		Manifest: domain.ArtifactManifest{
			Generation: gen,
			TrainedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Seed:       42,
			Folds:      5,
			ScalerFit:  "full",
		},
		Artifacts: make(map[string]*domain.Artifact),
	}
	for _, name := range domain.RequiredArtifacts {
		b.Artifacts[name] = &domain.Artifact{
			Name:       name,
			Generation: gen,
			Kind:       "test",
			Payload:    json.RawMessage(fmt.Sprintf(`{"gen":%q,"name":%q}`, gen, name)),
		}
	}
	return b
}

func TestModelStore_SaveAndLoad(t *testing.T) {
	store, err := NewModelStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, domain.ErrMissingArtifact))

	want := testBundle("gen-1")
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, want.Manifest.TrainedAt.Equal(got.Manifest.TrainedAt))
	assert.Equal(t, want.Manifest.Generation, got.Manifest.Generation)
	for _, name := range domain.RequiredArtifacts {
		assert.JSONEq(t, string(want.Artifacts[name].Payload), string(got.Artifacts[name].Payload))
	}

	require.NoError(t, store.Save(ctx, testBundle("gen-2")))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gen-2", got.Manifest.Generation)

	gens, err := store.Generations()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gen-1", "gen-2"}, gens)
}

func TestModelStore_DuplicateGeneration(t *testing.T) {
	store, err := NewModelStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testBundle("gen-1")))
	assert.ErrorIs(t, store.Save(ctx, testBundle("gen-1")), storage.ErrDuplicateKey)
}

func TestModelStore_MissingScaler(t *testing.T) {
	root := t.TempDir()
	store, err := NewModelStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testBundle("gen-1")))
	require.NoError(t, os.Remove(filepath.Join(root, generationsDir, "gen-1", domain.ArtifactScaler+".json")))

	_, err = store.Load(ctx)
	var missing *domain.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.ArtifactScaler, missing.Name)
}

func TestModelStore_MixedGenerationDetected(t *testing.T) {
	root := t.TempDir()
	store, err := NewModelStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testBundle("gen-1")))
	require.NoError(t, store.Save(ctx, testBundle("gen-2")))

	// Overwrite one blob of gen-2 with gen-1's copy.
	src := filepath.Join(root, generationsDir, "gen-1", domain.ArtifactRF+".json")
	dst := filepath.Join(root, generationsDir, "gen-2", domain.ArtifactRF+".json")
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrGenerationMismatch)
}

func TestModelStore_InvalidGenerationName(t *testing.T) {
	store, err := NewModelStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), testBundle("../escape"))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestModelStore_ConcurrentLoadSeesCompleteGenerations(t *testing.T) {
	store, err := NewModelStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testBundle("gen-0")))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 4)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				b, err := store.Load(ctx)
				if err != nil {
					errs <- err
					return
				}
				for _, a := range b.Artifacts {
					var p struct{ Gen string }
					if err := json.Unmarshal(a.Payload, &p); err != nil || p.Gen != b.Manifest.Generation {
						errs <- fmt.Errorf("mixed generation: manifest %s, blob %s", b.Manifest.Generation, p.Gen)
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= 20; i++ {
		require.NoError(t, store.Save(ctx, testBundle(fmt.Sprintf("gen-%d", i))))
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
