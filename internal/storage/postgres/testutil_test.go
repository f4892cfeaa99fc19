package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schemaGlob matches the migration scripts relative to this package. The
// container's entrypoint runs them in name order before accepting clients.
// They cannot come from the migrations package, which imports this one.
const schemaGlob = "../migrations/postgres/*.sql"

// newTestPool starts a throwaway postgres with the forecast schema loaded.
// The container and pool are released when t finishes.
func newTestPool(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	ctx := context.Background()

	scripts, err := filepath.Glob(schemaGlob)
	require.NoError(t, err)
	require.NotEmpty(t, scripts, "no migrations match %s", schemaGlob)

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("forecast"),
		tcpostgres.WithUsername("forecast"),
		tcpostgres.WithPassword("forecast"),
		tcpostgres.WithInitScripts(scripts...),
		testcontainers.WithWaitStrategy(
			// initdb restarts the server once after running the scripts.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "connect to postgres container")
	t.Cleanup(pool.Close)

	return pool
}

func ptr[T any](v T) *T {
	return &v
}
