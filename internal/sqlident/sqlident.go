// Package sqlident is the trust boundary between client-supplied names and SQL
// text. Table and column names cannot be bound as statement parameters, so every
// identifier that will be interpolated into a statement must pass through
// Sanitize first. Values never pass through here; they are always placeholder-bound.
package sqlident

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIdentifier is returned when a name is empty after sanitization.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidType is returned for a logical column type outside the whitelist.
	ErrInvalidType = errors.New("invalid column type")
)

// nativeTypes maps the permitted logical column types to PostgreSQL types.
var nativeTypes = map[string]string{
	"text":              "TEXT",
	"integer":           "BIGINT",
	"numeric":           "NUMERIC",
	"date":              "DATE",
	"timestamp":         "TIMESTAMPTZ",
	"unique-identifier": "UUID",
	"binary":            "BYTEA",
}

// Sanitize normalizes a user-supplied table or column name into a safe SQL
// identifier: lower-cased, with every character outside [a-z0-9_] removed.
// Returns ErrInvalidIdentifier if nothing survives. Idempotent.
func Sanitize(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return b.String(), nil
}

// ResolveType maps a logical column type to its native PostgreSQL type.
// Matching is case-insensitive. Unknown types fail with ErrInvalidType.
func ResolveType(logical string) (string, error) {
	native, ok := nativeTypes[strings.ToLower(strings.TrimSpace(logical))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, logical)
	}
	return native, nil
}

// Quote wraps a sanitized identifier in double quotes for statement text.
// The input must already have passed Sanitize.
func Quote(ident string) string {
	return `"` + ident + `"`
}
