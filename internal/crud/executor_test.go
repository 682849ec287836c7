package crud

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/database/drivertest"
	"github.com/formbase/formbase/internal/query"
)

func newTestService(fake *drivertest.Fake) *Service {
	return NewService(fake, slog.New(slog.DiscardHandler))
}

func TestInsertBuildsParameterizedStatement(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	if _, err := s.Insert(context.Background(), "orders", map[string]any{"customer": "Alice"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(fake.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(fake.Statements))
	}
	got := fake.Statements[0]
	if got.SQL != `INSERT INTO "orders" ("customer") VALUES ($1) RETURNING *` {
		t.Errorf("SQL = %q", got.SQL)
	}
	if len(got.Args) != 1 || got.Args[0] != "Alice" {
		t.Errorf("Args = %v", got.Args)
	}
}

func TestUpdateWithoutFilterIssuesNoStatement(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	_, err := s.Update(context.Background(), "orders", map[string]any{"amount": 1}, nil)
	if !errors.Is(err, query.ErrMissingFilter) {
		t.Fatalf("error = %v, want ErrMissingFilter", err)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}
}

func TestDeleteWithoutFilterIssuesNoStatement(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	_, err := s.Delete(context.Background(), "orders", &query.Filter{})
	if !errors.Is(err, query.ErrMissingFilter) {
		t.Fatalf("error = %v, want ErrMissingFilter", err)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}
}

func TestReadStatementGuardsNonSelect(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	if _, err := s.ReadStatement(context.Background(), "DELETE FROM orders"); !errors.Is(err, query.ErrNonSelect) {
		t.Fatalf("error = %v, want ErrNonSelect", err)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}

	if _, err := s.ReadStatement(context.Background(), "select 1"); err != nil {
		t.Errorf("lower-case select rejected: %v", err)
	}
}

func TestRunNamedUnknownSlug(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	if _, err := s.RunNamed(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRunNamedGuardsStoredStatement(t *testing.T) {
	fake := drivertest.New()
	fake.QueryResults["SELECT statement FROM _named_queries"] = []database.Row{
		{"statement": "DELETE FROM orders"},
	}
	s := newTestService(fake)

	if _, err := s.RunNamed(context.Background(), "bad"); !errors.Is(err, query.ErrNonSelect) {
		t.Fatalf("error = %v, want ErrNonSelect", err)
	}
}

func TestRunNamedReturnsCount(t *testing.T) {
	fake := drivertest.New()
	fake.QueryResults["SELECT statement FROM _named_queries"] = []database.Row{
		{"statement": "SELECT * FROM orders"},
	}
	fake.QueryResults["SELECT * FROM orders"] = []database.Row{
		{"id": int64(1)},
		{"id": int64(2)},
	}
	s := newTestService(fake)

	result, err := s.RunNamed(context.Background(), "all-orders")
	if err != nil {
		t.Fatalf("RunNamed: %v", err)
	}
	if result.Slug != "all-orders" || result.Count != 2 || len(result.Rows) != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestRegisterNamedRejectsNonSelect(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	if _, err := s.RegisterNamed(context.Background(), "x", "DROP TABLE orders"); !errors.Is(err, query.ErrNonSelect) {
		t.Fatalf("error = %v, want ErrNonSelect", err)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("statements issued: %v", fake.Statements)
	}
}

func TestRegisterNamedGeneratesSlug(t *testing.T) {
	fake := drivertest.New()
	s := newTestService(fake)

	slug, err := s.RegisterNamed(context.Background(), "", "SELECT 1")
	if err != nil {
		t.Fatalf("RegisterNamed: %v", err)
	}
	if slug == "" {
		t.Error("generated slug is empty")
	}
}
