package database

import "context"

// Driver defines the interface for database operations.
// All implementations must be safe for concurrent use.
type Driver interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, dsn string) error

	// Close closes the database connection.
	Close() error

	// Ping checks if the connection is alive.
	Ping(ctx context.Context) error

	// Exec runs a statement that returns no rows and reports rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query runs a statement and returns its rows as column-keyed maps.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// TableExists reports whether a table is present in the public schema.
	TableExists(ctx context.Context, table string) (bool, error)

	// ColumnNames returns the column names of a table in ordinal order.
	ColumnNames(ctx context.Context, table string) ([]string, error)

	// DatabaseName returns the name of the connected database.
	DatabaseName() string
}
