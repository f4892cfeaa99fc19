// Package migrations embeds the forecast schemas and applies them to the
// configured stores. Every statement is idempotent, so applying twice is
// a no-op.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Schema directories inside the embedded tree.
const (
	dialectPostgres   = "postgres"
	dialectClickhouse = "clickhouse"
)

//go:embed postgres/*.sql clickhouse/*.sql
var schemas embed.FS

// script is one migration file.
type script struct {
	name string
	sql  string
}

// scripts returns the dialect's non-empty .sql files ordered by name.
func scripts(dialect string) ([]script, error) {
	entries, err := fs.ReadDir(schemas, dialect)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dialect, err)
	}

	var out []script
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		body, err := fs.ReadFile(schemas, path.Join(dialect, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if strings.TrimSpace(string(body)) == "" {
			continue
		}
		out = append(out, script{name: e.Name(), sql: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}
