package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/database/drivertest"
)

func newTestCatalog(fake *drivertest.Fake) *Catalog {
	return New(fake, slog.New(slog.DiscardHandler))
}

func TestGetNotFound(t *testing.T) {
	fake := drivertest.New()
	c := newTestCatalog(fake)

	if _, err := c.Get(context.Background(), "orders"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestRegisterAndGetFromCache(t *testing.T) {
	fake := drivertest.New()
	c := newTestCatalog(fake)

	def := &TableDefinition{
		Entity: "Orders",
		Table:  "orders",
		Fields: map[string]string{"customer": "text", "amount": "numeric"},
	}
	if err := c.Register(context.Background(), def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if n := len(fake.StatementsMatching("INSERT INTO _tables")); n != 1 {
		t.Errorf("registration rows into _tables = %d, want 1", n)
	}
	if n := len(fake.StatementsMatching("INSERT INTO _table_fields")); n != 1 {
		t.Errorf("registration rows into _table_fields = %d, want 1", n)
	}

	fake.Reset()
	got, err := c.Get(context.Background(), "orders")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Entity != "Orders" || got.Fields["amount"] != "numeric" {
		t.Errorf("Get returned %+v", got)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("Get hit the store despite cached entry: %v", fake.Statements)
	}
}

func TestMergeFieldsPreservesExisting(t *testing.T) {
	fake := drivertest.New()
	c := newTestCatalog(fake)

	def := &TableDefinition{
		Entity: "Orders",
		Table:  "orders",
		Fields: map[string]string{"customer": "text"},
	}
	if err := c.Register(context.Background(), def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// A conflicting re-declaration of customer must be ignored; qty is new.
	merged, err := c.MergeFields(context.Background(), "orders", map[string]string{
		"customer": "integer",
		"qty":      "integer",
	})
	if err != nil {
		t.Fatalf("MergeFields: %v", err)
	}
	if merged.Fields["customer"] != "text" {
		t.Errorf("customer type overwritten: %q", merged.Fields["customer"])
	}
	if merged.Fields["qty"] != "integer" {
		t.Errorf("qty not added: %+v", merged.Fields)
	}
}

func TestMergeFieldsNoopSkipsWrite(t *testing.T) {
	fake := drivertest.New()
	c := newTestCatalog(fake)

	def := &TableDefinition{
		Entity: "Orders",
		Table:  "orders",
		Fields: map[string]string{"customer": "text"},
	}
	if err := c.Register(context.Background(), def); err != nil {
		t.Fatalf("Register: %v", err)
	}
	fake.Reset()

	if _, err := c.MergeFields(context.Background(), "orders", map[string]string{"customer": "text"}); err != nil {
		t.Fatalf("MergeFields: %v", err)
	}
	if n := len(fake.StatementsMatching("UPDATE _table_fields")); n != 0 {
		t.Errorf("no-op merge issued %d updates", n)
	}
}

func TestReloadDecodesStoredFields(t *testing.T) {
	fake := drivertest.New()
	fake.QueryResults["SELECT t.entity_name"] = []database.Row{
		{
			"entity_name": "Orders",
			"table_name":  "orders",
			"created_on":  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			"fields":      map[string]any{"customer": "text", "amount": "numeric"},
		},
	}
	c := newTestCatalog(fake)

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	def, err := c.Get(context.Background(), "orders")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if def.Fields["customer"] != "text" || def.Fields["amount"] != "numeric" {
		t.Errorf("decoded fields = %+v", def.Fields)
	}
}
