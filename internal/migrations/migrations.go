// Package migrations embeds the Postgres schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"lodgfy-booking/common/database"
)

//go:embed *.sql
var files embed.FS

// Names lists the embedded scripts in apply order.
func Names() []string {
	entries, _ := fs.Glob(files, "*.sql")
	sort.Strings(entries)
	return entries
}

// Script returns the contents of one embedded script.
func Script(name string) (string, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("migration %s: %w", name, err)
	}
	return string(b), nil
}

// Apply runs every embedded script in order. All statements are idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	for _, name := range Names() {
		script, err := Script(name)
		if err != nil {
			return err
		}
		if _, err := database.ExecScript(ctx, db, script); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}
