// internal/store/migrations.go
//
// Embedded schema migrations, one directory per dialect. Files are applied
// in lexical order and recorded in a _migrations table.
package store

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations
var migrationsFS embed.FS

type migration struct {
	name string
	sql  string
}

// loadMigrations reads migrations/<dialect>/*.sql in lexical order.
func loadMigrations(dialect string) ([]migration, error) {
	dir := "migrations/" + dialect
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		b, err := fs.ReadFile(migrationsFS, dir+"/"+e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, migration{name: e.Name(), sql: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// selfManaged reports scripts that handle their own transaction or FK
// pragmas and must not be wrapped in one.
func selfManaged(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	return strings.Contains(upper, "BEGIN TRANSACTION") ||
		strings.Contains(upper, "PRAGMA FOREIGN_KEYS=OFF") ||
		strings.Contains(upper, "PRAGMA FOREIGN_KEYS = OFF")
}
