package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lodgfy-booking/common/config"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// NewPostgresDB opens a pooled connection and verifies it with a ping.
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes db if it is non-nil.
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// SplitStatements splits a SQL script on ';' and drops blank and comment-only chunks.
// Scripts must not contain ';' inside function bodies or string literals.
func SplitStatements(script string) []string {
	var out []string
	for _, chunk := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(stripComments(chunk))
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func stripComments(chunk string) string {
	lines := strings.Split(chunk, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// ExecScript runs every statement of script in order and returns how many ran.
func ExecScript(ctx context.Context, db *sql.DB, script string) (int, error) {
	stmts := SplitStatements(script)
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			preview := stmt
			if len(preview) > 100 {
				preview = preview[:100]
			}
			return i, fmt.Errorf("statement %d failed (%s): %w", i+1, preview, err)
		}
	}
	return len(stmts), nil
}
