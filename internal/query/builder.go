// Package query builds parameterized SQL statements for tables and columns
// chosen at request time. Identifiers are sanitized before interpolation;
// values are always bound positionally and never appear in statement text.
package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/formbase/formbase/internal/sqlident"
)

var (
	// ErrEmptyPayload is returned when an insert or update carries no columns.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrMissingFilter is returned when an update or delete has no filter.
	// Unconditional updates and deletes are never permitted through this path.
	ErrMissingFilter = errors.New("missing filter")

	// ErrNonSelect is returned when a raw statement does not start with SELECT.
	ErrNonSelect = errors.New("non-select statement rejected")
)

// Statement is a built SQL statement with its ordered bind parameters.
type Statement struct {
	SQL  string
	Args []any
}

// Filter restricts which rows an operation touches. Equals is the safe,
// parameterized form. RawCondition is interpolated verbatim into the WHERE
// clause and must only ever come from trusted internal callers, never from
// end-user free text.
type Filter struct {
	Equals       map[string]any
	RawCondition string
}

// Empty reports whether the filter restricts nothing.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.Equals) == 0 && strings.TrimSpace(f.RawCondition) == "")
}

// BuildInsert produces an INSERT for every column in row, returning the
// inserted row including server-generated defaults.
func BuildInsert(table string, row map[string]any) (*Statement, error) {
	if len(row) == 0 {
		return nil, ErrEmptyPayload
	}
	tbl, err := sqlident.Sanitize(table)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	for i, key := range sortedKeys(row) {
		col, err := sqlident.Sanitize(key)
		if err != nil {
			return nil, err
		}
		cols = append(cols, sqlident.Quote(col))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[key])
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		sqlident.Quote(tbl), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return &Statement{SQL: sql, Args: args}, nil
}

// BuildSelect produces a SELECT * with an optional filter. A nil or empty
// filter selects every row.
func BuildSelect(table string, filter *Filter) (*Statement, error) {
	tbl, err := sqlident.Sanitize(table)
	if err != nil {
		return nil, err
	}

	sql := "SELECT * FROM " + sqlident.Quote(tbl)
	if filter.Empty() {
		return &Statement{SQL: sql}, nil
	}

	where, args, err := buildWhere(filter, 0)
	if err != nil {
		return nil, err
	}
	return &Statement{SQL: sql + " WHERE " + where, Args: args}, nil
}

// BuildUpdate produces an UPDATE of the columns in row, restricted by filter.
// The filter is mandatory; its placeholders are numbered after the SET
// placeholders.
func BuildUpdate(table string, row map[string]any, filter *Filter) (*Statement, error) {
	if len(row) == 0 {
		return nil, ErrEmptyPayload
	}
	if filter.Empty() {
		return nil, ErrMissingFilter
	}
	tbl, err := sqlident.Sanitize(table)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	for i, key := range sortedKeys(row) {
		col, err := sqlident.Sanitize(key)
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", sqlident.Quote(col), i+1))
		args = append(args, row[key])
	}

	where, whereArgs, err := buildWhere(filter, len(args))
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *",
		sqlident.Quote(tbl), strings.Join(sets, ", "), where)
	return &Statement{SQL: sql, Args: args}, nil
}

// BuildDelete produces a DELETE restricted by a mandatory filter, returning
// the deleted rows.
func BuildDelete(table string, filter *Filter) (*Statement, error) {
	if filter.Empty() {
		return nil, ErrMissingFilter
	}
	tbl, err := sqlident.Sanitize(table)
	if err != nil {
		return nil, err
	}

	where, args, err := buildWhere(filter, 0)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s RETURNING *", sqlident.Quote(tbl), where)
	return &Statement{SQL: sql, Args: args}, nil
}

// CheckSelectOnly rejects any raw statement that does not begin with the
// case-insensitive token SELECT. This guards the report-execution surface
// against being used to mutate data.
func CheckSelectOnly(stmt string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return ErrNonSelect
	}
	first := strings.Fields(trimmed)[0]
	if !strings.EqualFold(first, "select") {
		return fmt.Errorf("%w: statement starts with %q", ErrNonSelect, first)
	}
	return nil
}

// buildWhere renders a filter into a WHERE body. Equality placeholders start
// at offset+1. A raw condition takes precedence and binds nothing.
func buildWhere(filter *Filter, offset int) (string, []any, error) {
	if raw := strings.TrimSpace(filter.RawCondition); raw != "" {
		return raw, nil, nil
	}

	clauses := make([]string, 0, len(filter.Equals))
	args := make([]any, 0, len(filter.Equals))
	for i, key := range sortedKeys(filter.Equals) {
		col, err := sqlident.Sanitize(key)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", sqlident.Quote(col), offset+i+1))
		args = append(args, filter.Equals[key])
	}
	return strings.Join(clauses, " AND "), args, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
