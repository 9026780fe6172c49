package store

import (
	"context"
	"fmt"
	"strings"

	"atelier-backend/internal/metadata"
)

// Bootstrap creates the system tables and one table per registered entity.
// Idempotent: existing tables are left alone.
func (s *Store) Bootstrap(ctx context.Context, reg *metadata.Registry) error {
	for _, stmt := range splitStatements(s.Dialect.SystemTablesSQL()) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create system tables: %w", err)
		}
	}

	for _, entity := range reg.All() {
		if err := s.createEntityTable(ctx, entity); err != nil {
			return fmt.Errorf("create table for %s: %w", entity.Name, err)
		}
	}
	return nil
}

func (s *Store) createEntityTable(ctx context.Context, entity *metadata.Entity) error {
	exists, err := s.Dialect.TableExists(ctx, s.DB, entity.Table)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}
	if exists {
		return nil
	}

	var cols []string
	for _, name := range entity.Columns() {
		fieldType, err := entity.ColumnType(name)
		if err != nil {
			return err
		}
		col := name + " " + s.Dialect.ColumnType(fieldType)
		switch {
		case name == "id":
			col += " PRIMARY KEY"
		case name == "tenant_id":
			col += " NOT NULL"
		case name == "created_at" || name == "updated_at":
			col += " NOT NULL DEFAULT " + defaultNow(s.Dialect)
		default:
			if f := entity.GetField(name); f != nil && f.Required {
				col += " NOT NULL"
			}
		}
		cols = append(cols, col)
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", entity.Table, strings.Join(cols, ",\n  "))
	if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", entity.Table, err)
	}

	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_tenant ON %s (tenant_id)",
		entity.Table, entity.Table)
	if _, err := s.DB.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create tenant index on %s: %w", entity.Table, err)
	}
	return nil
}

// defaultNow wraps the dialect's now expression so it is valid inside a
// DEFAULT clause on both databases.
func defaultNow(d Dialect) string {
	if d.Name() == "sqlite" {
		return "(" + d.NowExpr() + ")"
	}
	return d.NowExpr()
}

// splitStatements breaks a DDL script into individual statements. SQLite's
// driver rejects multi-statement Exec calls.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			stmts = append(stmts, trimmed)
		}
	}
	return stmts
}
