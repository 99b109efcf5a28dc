// Package schema owns the NovaERP PostgreSQL schema.
package schema

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"novaerp/pkg/logger"
)

//go:embed schema.sql
var ddl string

// DDL returns the schema script.
func DDL() string { return ddl }

// Migrate applies the schema. It is safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// A simple-protocol Exec accepts the multi-statement script.
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info(ctx, "schema applied")
	return nil
}
