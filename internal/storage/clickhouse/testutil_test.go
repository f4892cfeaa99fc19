package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	clickhouseImage = "clickhouse/clickhouse-server:24.1-alpine"
	testDatabase    = "forecast"
	// Relative to this package; the migrations package imports this one.
	schemaGlob = "../migrations/clickhouse/*.sql"
)

// newTestConn starts a throwaway ClickHouse server with the feature schema
// applied. The container and connection are released when t finishes.
func newTestConn(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("clickhouse container tests are skipped in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        clickhouseImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       testDatabase,
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections"),
				wait.ForListeningPort("9000/tcp"),
			).WithDeadline(90 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start clickhouse container")

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s/%s", endpoint, testDatabase))
	require.NoError(t, err, "connect to clickhouse container")
	t.Cleanup(func() { _ = conn.Close() })

	applySchema(t, conn)
	return conn
}

// applySchema executes each migration statement separately, since the
// native protocol accepts one statement per Exec.
func applySchema(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	files, err := filepath.Glob(schemaGlob)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations match %s", schemaGlob)

	for _, file := range files {
		body, err := os.ReadFile(file)
		require.NoError(t, err)

		var sql strings.Builder
		for _, line := range strings.Split(string(body), "\n") {
			if !strings.HasPrefix(strings.TrimSpace(line), "--") {
				sql.WriteString(line)
				sql.WriteByte('\n')
			}
		}
		for _, stmt := range strings.Split(sql.String(), ";") {
			if stmt = strings.TrimSpace(stmt); stmt == "" {
				continue
			}
			require.NoError(t, conn.Exec(ctx, stmt), "apply %s", filepath.Base(file))
		}
	}
}
