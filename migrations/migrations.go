// Package migrations embeds the PostgreSQL schema and applies it in file
// order. Every statement is idempotent so Apply can run on each start.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed *.up.sql
var files embed.FS

// Apply runs every embedded migration in lexical order.
func Apply(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Names returns the embedded migration file names in apply order.
func Names() []string {
	names, _ := fs.Glob(files, "*.up.sql")
	sort.Strings(names)
	return names
}
