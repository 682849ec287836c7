// Package crud orchestrates the query builder against the connection pool. It
// validates what a request must carry, builds the statement, executes it, and
// returns the resulting rows. Each operation issues exactly one statement; no
// transaction spans multiple calls.
package crud

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/query"
)

// NamedResult is the outcome of running a pre-registered query.
type NamedResult struct {
	Slug  string         `json:"slug"`
	Rows  []database.Row `json:"rows"`
	Count int            `json:"count"`
}

// Service executes CRUD operations against dynamically created tables.
type Service struct {
	drv database.Driver
	log *slog.Logger
}

// NewService creates a CRUD service.
func NewService(drv database.Driver, log *slog.Logger) *Service {
	return &Service{drv: drv, log: log}
}

// Insert adds one row and returns it, including server-generated columns.
func (s *Service) Insert(ctx context.Context, table string, row map[string]any) ([]database.Row, error) {
	stmt, err := query.BuildInsert(table, row)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, stmt)
}

// Read returns the rows matching the filter, or every row when filter is nil.
func (s *Service) Read(ctx context.Context, table string, filter *query.Filter) ([]database.Row, error) {
	stmt, err := query.BuildSelect(table, filter)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, stmt)
}

// ReadStatement executes a caller-supplied SELECT verbatim. This is the
// trusted raw path; the only defense applied here is the SELECT-prefix guard.
func (s *Service) ReadStatement(ctx context.Context, stmt string) ([]database.Row, error) {
	if err := query.CheckSelectOnly(stmt); err != nil {
		return nil, err
	}
	return s.run(ctx, &query.Statement{SQL: stmt})
}

// Update modifies the rows matching the mandatory filter and returns them.
func (s *Service) Update(ctx context.Context, table string, row map[string]any, filter *query.Filter) ([]database.Row, error) {
	stmt, err := query.BuildUpdate(table, row, filter)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, stmt)
}

// Delete removes the rows matching the mandatory filter and returns them.
func (s *Service) Delete(ctx context.Context, table string, filter *query.Filter) ([]database.Row, error) {
	stmt, err := query.BuildDelete(table, filter)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, stmt)
}

// RunNamed looks up a pre-registered statement by slug, enforces the read-only
// guard, and executes it with no caller-supplied parameters.
func (s *Service) RunNamed(ctx context.Context, slug string) (*NamedResult, error) {
	rows, err := s.drv.Query(ctx, queryGetNamed, slug)
	if err != nil {
		return nil, &ExecError{SQL: queryGetNamed, Cause: err}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: named query %q", ErrNotFound, slug)
	}

	stmt, _ := rows[0]["statement"].(string)
	if err := query.CheckSelectOnly(stmt); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, &query.Statement{SQL: stmt})
	if err != nil {
		return nil, err
	}
	return &NamedResult{Slug: slug, Rows: result, Count: len(result)}, nil
}

// RegisterNamed stores a statement under a slug, generating one when absent.
// The read-only guard applies at registration time as well, so a mutating
// statement can never enter the catalog.
func (s *Service) RegisterNamed(ctx context.Context, slug, stmt string) (string, error) {
	if err := query.CheckSelectOnly(stmt); err != nil {
		return "", err
	}
	if slug == "" {
		slug = uuid.NewString()
	}
	if _, err := s.drv.Exec(ctx, upsertNamed, slug, stmt); err != nil {
		return "", &ExecError{SQL: upsertNamed, Cause: err}
	}
	s.log.Info("named query registered", "slug", slug)
	return slug, nil
}

func (s *Service) run(ctx context.Context, stmt *query.Statement) ([]database.Row, error) {
	rows, err := s.drv.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		s.log.Error("statement failed", "sql", stmt.SQL, "error", err)
		return nil, &ExecError{SQL: stmt.SQL, Cause: err}
	}
	if rows == nil {
		rows = []database.Row{}
	}
	return rows, nil
}

const (
	queryGetNamed = `SELECT statement FROM _named_queries WHERE slug = $1`

	upsertNamed = `
		INSERT INTO _named_queries (slug, statement)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET statement = EXCLUDED.statement`
)
