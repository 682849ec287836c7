// Package drivertest provides an in-memory database.Driver for tests that need
// to observe exactly which statements a component issues.
package drivertest

import (
	"context"
	"strings"

	"github.com/formbase/formbase/internal/database"
)

// Statement is one recorded Exec or Query call.
type Statement struct {
	SQL  string
	Args []any
}

// Fake records every statement it receives. Table existence, column lists and
// query results are driven by test-set fields.
type Fake struct {
	Statements []Statement

	Tables  map[string]bool
	Columns map[string][]string

	// QueryResults maps a SQL prefix to canned rows. The first matching prefix
	// wins; unmatched queries return no rows.
	QueryResults map[string][]database.Row

	// ExecErr, when set, fails every Exec call.
	ExecErr error
}

// New returns an empty fake with no known tables.
func New() *Fake {
	return &Fake{
		Tables:       make(map[string]bool),
		Columns:      make(map[string][]string),
		QueryResults: make(map[string][]database.Row),
	}
}

func (f *Fake) Connect(ctx context.Context, dsn string) error { return nil }
func (f *Fake) Close() error                                  { return nil }
func (f *Fake) Ping(ctx context.Context) error                { return nil }
func (f *Fake) DatabaseName() string                          { return "fake" }

func (f *Fake) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	f.Statements = append(f.Statements, Statement{SQL: sql, Args: args})
	if f.ExecErr != nil {
		return 0, f.ExecErr
	}
	return 1, nil
}

func (f *Fake) Query(ctx context.Context, sql string, args ...any) ([]database.Row, error) {
	f.Statements = append(f.Statements, Statement{SQL: sql, Args: args})
	for prefix, rows := range f.QueryResults {
		if strings.HasPrefix(strings.TrimSpace(sql), prefix) {
			return rows, nil
		}
	}
	return nil, nil
}

func (f *Fake) TableExists(ctx context.Context, table string) (bool, error) {
	return f.Tables[table], nil
}

func (f *Fake) ColumnNames(ctx context.Context, table string) ([]string, error) {
	return f.Columns[table], nil
}

// StatementsMatching returns recorded statements whose SQL starts with prefix.
func (f *Fake) StatementsMatching(prefix string) []Statement {
	var out []Statement
	for _, s := range f.Statements {
		if strings.HasPrefix(strings.TrimSpace(s.SQL), prefix) {
			out = append(out, s)
		}
	}
	return out
}

// Reset clears the recorded statements but keeps table and column state.
func (f *Fake) Reset() {
	f.Statements = nil
}
