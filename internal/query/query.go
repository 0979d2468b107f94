// Package query provides the named SQL template registry shared by both
// data stores. Templates are resolved by name, validated for parameter
// count, and rejected before dispatch unless they are read queries.
package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownQuery indicates an unregistered template name.
	ErrUnknownQuery = errors.New("unknown query")

	// ErrParamCount indicates an argument count mismatch.
	ErrParamCount = errors.New("parameter count mismatch")

	// ErrNotReadOnly indicates a statement that is not a read query. Both
	// backing stores are read-only collaborators; the guard runs before
	// dispatch rather than relying on the store.
	ErrNotReadOnly = errors.New("statement is not a read query")
)

// Query is one named SQL template.
type Query struct {
	Name   string
	SQL    string
	Params int
}

// Registry maps names to SQL templates.
type Registry struct {
	queries map[string]Query
}

// NewRegistry builds a registry, validating every template as read-only.
func NewRegistry(queries []Query) (*Registry, error) {
	m := make(map[string]Query, len(queries))
	for _, q := range queries {
		if err := CheckReadOnly(q.SQL); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		if _, dup := m[q.Name]; dup {
			return nil, fmt.Errorf("query %s registered twice", q.Name)
		}
		m[q.Name] = q
	}
	return &Registry{queries: m}, nil
}

// Resolve returns the SQL text for name after validating the argument
// count against the template's declared parameter count.
func (r *Registry) Resolve(name string, argc int) (string, error) {
	q, ok := r.queries[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownQuery, name)
	}
	if argc != q.Params {
		return "", fmt.Errorf("%w: query %s takes %d params, got %d",
			ErrParamCount, name, q.Params, argc)
	}
	return q.SQL, nil
}

// CheckReadOnly rejects any statement that is not a single SELECT or WITH
// query. Multi-statement batches are rejected outright.
func CheckReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrNotReadOnly)
	}
	if i := strings.IndexByte(trimmed, ';'); i >= 0 && strings.TrimSpace(trimmed[i+1:]) != "" {
		return fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	first := strings.ToUpper(firstWord(trimmed))
	switch first {
	case "SELECT", "WITH":
		return nil
	default:
		return fmt.Errorf("%w: statement starts with %s", ErrNotReadOnly, first)
	}
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' {
			return s[:i]
		}
	}
	return s
}

// Rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func Rebind(sqlText string) string {
	var result []byte
	n := 1
	for i := 0; i < len(sqlText); i++ {
		if sqlText[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, sqlText[i])
		}
	}
	return string(result)
}
