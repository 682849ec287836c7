package postgres

// SQL queries for PostgreSQL metadata introspection.
const (
	queryTableExists = `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			  AND table_name = $1
			  AND table_type = 'BASE TABLE')`

	queryColumnNames = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = $1
		ORDER BY ordinal_position`
)
