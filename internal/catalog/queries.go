package catalog

// Catalog table DDL and statements. The leading underscore keeps catalog
// tables out of the namespace available to dynamically created tables, whose
// names are sanitized to [a-z0-9_] but registered entities conventionally
// avoid the prefix.
const (
	ddlTables = `
		CREATE TABLE IF NOT EXISTS _tables (
			entity_name TEXT NOT NULL,
			table_name  TEXT PRIMARY KEY,
			created_on  TIMESTAMPTZ NOT NULL DEFAULT now())`

	ddlTableFields = `
		CREATE TABLE IF NOT EXISTS _table_fields (
			table_name TEXT PRIMARY KEY REFERENCES _tables(table_name),
			fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_on TIMESTAMPTZ NOT NULL DEFAULT now())`

	ddlNamedQueries = `
		CREATE TABLE IF NOT EXISTS _named_queries (
			slug       TEXT PRIMARY KEY,
			statement  TEXT NOT NULL,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now())`

	queryGetDefinition = `
		SELECT t.entity_name, t.table_name, t.created_on, f.fields
		FROM _tables t
		LEFT JOIN _table_fields f ON f.table_name = t.table_name
		WHERE t.table_name = $1`

	queryListDefinitions = `
		SELECT t.entity_name, t.table_name, t.created_on, f.fields
		FROM _tables t
		LEFT JOIN _table_fields f ON f.table_name = t.table_name
		ORDER BY t.table_name`

	insertTable = `
		INSERT INTO _tables (entity_name, table_name)
		VALUES ($1, $2)
		ON CONFLICT (table_name) DO NOTHING`

	insertTableFields = `
		INSERT INTO _table_fields (table_name, fields)
		VALUES ($1, $2)
		ON CONFLICT (table_name) DO UPDATE SET fields = EXCLUDED.fields, updated_on = now()`

	updateTableFields = `
		UPDATE _table_fields
		SET fields = $1, updated_on = now()
		WHERE table_name = $2`
)
