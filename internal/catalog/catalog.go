// Package catalog tracks every table managed by the schema engine: the owning
// entity name, the physical table name, and the logical field map. The backing
// store is a pair of catalog tables; a registry cache in front of it avoids a
// round trip on the hot lookup path.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/formbase/formbase/internal/database"
)

// ErrNotFound is returned when a table has no catalog record.
var ErrNotFound = errors.New("table not registered")

// TableDefinition is one catalog entry.
type TableDefinition struct {
	Entity    string            `json:"entityName"`
	Table     string            `json:"tableName"`
	Fields    map[string]string `json:"fields"`
	CreatedOn time.Time         `json:"createdOn"`
}

// Catalog provides access to the table registry. Safe for concurrent use.
type Catalog struct {
	drv database.Driver
	log *slog.Logger

	mu    sync.RWMutex
	cache map[string]*TableDefinition
}

// New creates a catalog over the given driver. Call EnsureSchema before use.
func New(drv database.Driver, log *slog.Logger) *Catalog {
	return &Catalog{
		drv:   drv,
		log:   log,
		cache: make(map[string]*TableDefinition),
	}
}

// EnsureSchema creates the catalog tables if they do not exist.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{ddlTables, ddlTableFields, ddlNamedQueries} {
		if _, err := c.drv.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("catalog schema: %w", err)
		}
	}
	return nil
}

// Reload replaces the registry cache from the backing store.
func (c *Catalog) Reload(ctx context.Context) error {
	rows, err := c.drv.Query(ctx, queryListDefinitions)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}

	cache := make(map[string]*TableDefinition, len(rows))
	for _, row := range rows {
		def := definitionFromRow(row)
		cache[def.Table] = def
	}

	c.mu.Lock()
	c.cache = cache
	c.mu.Unlock()
	return nil
}

// Exists reports whether a catalog record exists for the physical table.
func (c *Catalog) Exists(ctx context.Context, table string) (bool, error) {
	def, err := c.Get(ctx, table)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return def != nil, nil
}

// Get returns the catalog record for the physical table, consulting the cache
// first. Returns ErrNotFound when the table is not registered.
func (c *Catalog) Get(ctx context.Context, table string) (*TableDefinition, error) {
	c.mu.RLock()
	def, ok := c.cache[table]
	c.mu.RUnlock()
	if ok {
		return def, nil
	}

	rows, err := c.drv.Query(ctx, queryGetDefinition, table)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}

	def = definitionFromRow(rows[0])
	c.mu.Lock()
	c.cache[def.Table] = def
	c.mu.Unlock()
	return def, nil
}

// Register records a newly created table and its field map.
func (c *Catalog) Register(ctx context.Context, def *TableDefinition) error {
	if _, err := c.drv.Exec(ctx, insertTable, def.Entity, def.Table); err != nil {
		return fmt.Errorf("register table: %w", err)
	}

	fieldsJSON, err := json.Marshal(def.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	if _, err := c.drv.Exec(ctx, insertTableFields, def.Table, fieldsJSON); err != nil {
		return fmt.Errorf("register fields: %w", err)
	}

	if def.CreatedOn.IsZero() {
		def.CreatedOn = time.Now().UTC()
	}
	c.mu.Lock()
	c.cache[def.Table] = def
	c.mu.Unlock()
	return nil
}

// MergeFields unions newFields into the stored field map. Only keys absent
// from the current map are added; re-declarations of existing columns are
// ignored, so a conflicting type never overwrites the recorded one.
func (c *Catalog) MergeFields(ctx context.Context, table string, newFields map[string]string) (*TableDefinition, error) {
	def, err := c.Get(ctx, table)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(def.Fields)+len(newFields))
	for k, v := range def.Fields {
		merged[k] = v
	}
	added := false
	for k, v := range newFields {
		if _, exists := merged[k]; !exists {
			merged[k] = v
			added = true
		}
	}
	if !added {
		return def, nil
	}

	fieldsJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	if _, err := c.drv.Exec(ctx, updateTableFields, fieldsJSON, table); err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}

	updated := &TableDefinition{
		Entity:    def.Entity,
		Table:     def.Table,
		Fields:    merged,
		CreatedOn: def.CreatedOn,
	}
	c.mu.Lock()
	c.cache[table] = updated
	c.mu.Unlock()
	return updated, nil
}

// List returns every catalog record.
func (c *Catalog) List(ctx context.Context) ([]*TableDefinition, error) {
	rows, err := c.drv.Query(ctx, queryListDefinitions)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defs := make([]*TableDefinition, 0, len(rows))
	for _, row := range rows {
		defs = append(defs, definitionFromRow(row))
	}
	return defs, nil
}

func definitionFromRow(row database.Row) *TableDefinition {
	def := &TableDefinition{
		Fields: decodeFields(row["fields"]),
	}
	if v, ok := row["entity_name"].(string); ok {
		def.Entity = v
	}
	if v, ok := row["table_name"].(string); ok {
		def.Table = v
	}
	if v, ok := row["created_on"].(time.Time); ok {
		def.CreatedOn = v
	}
	return def
}

// decodeFields accepts the jsonb column however the driver surfaces it:
// already-decoded map, raw bytes, or string.
func decodeFields(v any) map[string]string {
	fields := make(map[string]string)
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if s, ok := val.(string); ok {
				fields[k] = s
			}
		}
	case []byte:
		_ = json.Unmarshal(t, &fields)
	case string:
		_ = json.Unmarshal([]byte(t), &fields)
	}
	return fields
}
