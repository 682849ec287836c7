package database

// Row is one result row keyed by column name, ready for JSON encoding.
type Row = map[string]any
