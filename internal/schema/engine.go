// Package schema creates and extends dynamic tables from client-supplied field
// maps, keeping the catalog in step with the physical schema. All DDL issued
// here is additive; columns are never dropped or retyped.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/formbase/formbase/internal/catalog"
	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/sqlident"
)

// System columns added to every created table. Requested fields with these
// names are ignored, like any other re-declaration of an existing column.
var systemColumns = map[string]bool{
	"id":          true,
	"created_on":  true,
	"modified_on": true,
	"versionid":   true,
}

// Engine is the only writer of both the physical schema and the catalog.
type Engine struct {
	drv database.Driver
	cat *catalog.Catalog
	log *slog.Logger
}

// NewEngine creates a schema engine.
func NewEngine(drv database.Driver, cat *catalog.Catalog, log *slog.Logger) *Engine {
	return &Engine{drv: drv, cat: cat, log: log}
}

// column is a validated (sanitized name, native type, logical type) triple.
type column struct {
	name    string
	native  string
	logical string
}

// DefineOrExtend creates the requested table, or adds any missing columns to
// it if it already exists. The whole request is validated before any statement
// runs; an invalid identifier or type anywhere aborts with no side effects.
func (e *Engine) DefineOrExtend(ctx context.Context, entity, table string, fields map[string]string) (*catalog.TableDefinition, error) {
	tbl, err := sqlident.Sanitize(table)
	if err != nil {
		return nil, err
	}

	columns, validFields, err := validateFields(fields)
	if err != nil {
		return nil, err
	}

	// The physical schema, not the catalog, decides create vs extend: the
	// catalog record may be stale or absent for tables created elsewhere.
	exists, err := e.drv.TableExists(ctx, tbl)
	if err != nil {
		return nil, fmt.Errorf("check table: %w", err)
	}

	if exists {
		return e.extend(ctx, entity, tbl, columns, validFields)
	}
	return e.create(ctx, entity, tbl, columns, validFields)
}

func (e *Engine) create(ctx context.Context, entity, tbl string, columns []column, fields map[string]string) (*catalog.TableDefinition, error) {
	ddl := buildCreateTable(tbl, columns)
	if _, err := e.drv.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create table %s: %w", tbl, err)
	}
	e.log.Info("table created", "table", tbl, "entity", entity, "columns", len(columns))

	def := &catalog.TableDefinition{
		Entity:    entity,
		Table:     tbl,
		Fields:    fields,
		CreatedOn: time.Now().UTC(),
	}
	if err := e.cat.Register(ctx, def); err != nil {
		// The physical table is the source of truth for later CRUD; a failed
		// catalog write degrades bookkeeping but must not fail the request.
		e.log.Warn("catalog registration failed after create", "table", tbl, "error", err)
	}
	return def, nil
}

func (e *Engine) extend(ctx context.Context, entity, tbl string, columns []column, fields map[string]string) (*catalog.TableDefinition, error) {
	existing, err := e.drv.ColumnNames(ctx, tbl)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", tbl, err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, col := range columns {
		if present[col.name] {
			continue
		}
		// Idempotent by construction: a concurrent add of the same column
		// leaves one instance and the losing call observes "already present".
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			sqlident.Quote(tbl), sqlident.Quote(col.name), col.native)
		if _, err := e.drv.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("add column %s.%s: %w", tbl, col.name, err)
		}
		e.log.Info("column added", "table", tbl, "column", col.name, "type", col.logical)
	}

	registered, err := e.cat.Exists(ctx, tbl)
	if err != nil {
		e.log.Warn("catalog lookup failed after extend", "table", tbl, "error", err)
		return fallbackDefinition(entity, tbl, fields), nil
	}

	if !registered {
		// Table predates this engine; adopt it into the catalog now.
		def := &catalog.TableDefinition{
			Entity:    entity,
			Table:     tbl,
			Fields:    fields,
			CreatedOn: time.Now().UTC(),
		}
		if err := e.cat.Register(ctx, def); err != nil {
			e.log.Warn("catalog adoption failed after extend", "table", tbl, "error", err)
		}
		return def, nil
	}

	def, err := e.cat.MergeFields(ctx, tbl, fields)
	if err != nil {
		e.log.Warn("catalog merge failed after extend", "table", tbl, "error", err)
		return fallbackDefinition(entity, tbl, fields), nil
	}
	return def, nil
}

// validateFields sanitizes every column name and resolves every type before
// anything touches the database. Requested fields shadowing system columns
// are dropped. Returns the validated columns in name order plus the sanitized
// field map for the catalog.
func validateFields(fields map[string]string) ([]column, map[string]string, error) {
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("%w: no fields supplied", sqlident.ErrInvalidIdentifier)
	}

	columns := make([]column, 0, len(fields))
	validated := make(map[string]string, len(fields))
	for name, logical := range fields {
		col, err := sqlident.Sanitize(name)
		if err != nil {
			return nil, nil, err
		}
		native, err := sqlident.ResolveType(logical)
		if err != nil {
			return nil, nil, err
		}
		if systemColumns[col] {
			continue
		}
		columns = append(columns, column{name: col, native: native, logical: logical})
		validated[col] = logical
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].name < columns[j].name })
	return columns, validated, nil
}

func buildCreateTable(tbl string, columns []column) string {
	ddl := "CREATE TABLE " + sqlident.Quote(tbl) + " (id BIGSERIAL PRIMARY KEY"
	for _, col := range columns {
		ddl += fmt.Sprintf(", %s %s", sqlident.Quote(col.name), col.native)
	}
	ddl += ", created_on TIMESTAMPTZ NOT NULL DEFAULT now()"
	ddl += ", modified_on TIMESTAMPTZ NOT NULL DEFAULT now()"
	ddl += ", versionid UUID NOT NULL DEFAULT gen_random_uuid())"
	return ddl
}

func fallbackDefinition(entity, tbl string, fields map[string]string) *catalog.TableDefinition {
	return &catalog.TableDefinition{
		Entity:    entity,
		Table:     tbl,
		Fields:    fields,
		CreatedOn: time.Now().UTC(),
	}
}
