package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the embedded DDL applied by EnsureSchema.
func Schema() string {
	return schemaSQL
}

// EnsureSchema applies the embedded schema. Every statement is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		query := strings.TrimSpace(stmt)
		if query == "" {
			continue
		}
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("platform/db: schema statement failed: %w", err)
		}
	}
	return nil
}
