// Package dataset provides the in-memory named dataset store that carries
// tabular results and metadata between pipeline stages and out to the
// report exporter.
package dataset

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrValidation indicates a caller bug: a Put whose rows do not match the
// declared column width.
var ErrValidation = errors.New("dataset validation failed")

// Dataset is one named tabular result with free-form metadata.
type Dataset struct {
	Columns   []string       `json:"columns"`
	Rows      [][]any        `json:"rows"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Export is the nested serializable structure consumed by the report
// formatter: every named dataset plus run-level metadata.
type Export struct {
	Datasets map[string]*Dataset `json:"datasets"`
	Order    []string            `json:"order"`
	Metadata map[string]any      `json:"metadata,omitempty"`
}

// Store is the per-run dataset registry. Writes are applied in
// stage-completion order; overwriting a name replaces the entry atomically.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	order    []string
	metadata map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		datasets: make(map[string]*Dataset),
		metadata: make(map[string]any),
	}
}

// Put stores a named tabular result. Every row must match the column
// width; a mismatch rejects the whole put. Numeric values are normalized
// to float64 so that export round-trips are stable.
func (s *Store) Put(name string, columns []string, rows [][]any, metadata map[string]any) error {
	if name == "" {
		return fmt.Errorf("%w: dataset name is required", ErrValidation)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("%w: dataset %s row %d has %d values, want %d",
				ErrValidation, name, i, len(row), len(columns))
		}
	}

	normalized := make([][]any, len(rows))
	for i, row := range rows {
		nr := make([]any, len(row))
		for j, v := range row {
			nr[j] = normalizeValue(v)
		}
		normalized[i] = nr
	}

	ds := &Dataset{
		Columns:   append([]string(nil), columns...),
		Rows:      normalized,
		Metadata:  normalizeMeta(metadata),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if _, exists := s.datasets[name]; !exists {
		s.order = append(s.order, name)
	}
	s.datasets[name] = ds
	s.mu.Unlock()

	slog.Info("dataset stored",
		"name", name,
		"columns", len(columns),
		"rows", len(rows),
	)
	return nil
}

// Get returns the dataset stored under name, or false when absent.
func (s *Store) Get(name string) (*Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[name]
	return ds, ok
}

// Names returns the stored dataset names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// SetMeta sets one run-level metadata value.
func (s *Store) SetMeta(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = normalizeValue(value)
}

// Meta returns one run-level metadata value.
func (s *Store) Meta(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.metadata[key]
	return v, ok
}

// Export snapshots the store into the nested serializable structure.
// Missing values are normalized to nil so that export(import(export(x)))
// equals export(x).
func (s *Store) Export() *Export {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &Export{
		Datasets: make(map[string]*Dataset, len(s.datasets)),
		Order:    append([]string(nil), s.order...),
		Metadata: copyMeta(s.metadata),
	}
	for name, ds := range s.datasets {
		out.Datasets[name] = &Dataset{
			Columns:   append([]string(nil), ds.Columns...),
			Rows:      copyRows(ds.Rows),
			Metadata:  copyMeta(ds.Metadata),
			CreatedAt: ds.CreatedAt,
		}
	}
	return out
}

// Import rebuilds a store from an exported structure.
func Import(e *Export) (*Store, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil export", ErrValidation)
	}
	s := NewStore()
	for _, name := range e.Order {
		ds, ok := e.Datasets[name]
		if !ok {
			return nil, fmt.Errorf("%w: export order names missing dataset %s", ErrValidation, name)
		}
		if err := s.Put(name, ds.Columns, ds.Rows, ds.Metadata); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.datasets[name].CreatedAt = ds.CreatedAt
		s.mu.Unlock()
	}
	for k, v := range e.Metadata {
		s.SetMeta(k, v)
	}
	return s, nil
}

// normalizeValue collapses the numeric type zoo to float64 and missing
// markers to nil.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return x.InexactFloat64()
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case float32:
		return float64(x)
	case float64:
		return x
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *int:
		if x == nil {
			return nil
		}
		return float64(*x)
	case sql.NullString:
		if !x.Valid {
			return nil
		}
		return x.String
	case sql.NullFloat64:
		if !x.Valid {
			return nil
		}
		return x.Float64
	case sql.NullInt64:
		if !x.Valid {
			return nil
		}
		return float64(x.Int64)
	default:
		return v
	}
}

func normalizeMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func copyRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}

func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
