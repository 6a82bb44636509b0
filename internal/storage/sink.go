// Package storage provides the optional relational mirror for the flat
// export rows. Backends register themselves by kind; the process picks one by
// configuration, the pipeline only sees the RowSink interface.
package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Config selects and connects a sink backend.
//
// Kind must match a registered backend kind ("postgres", "sqlite", "mssql").
// DSN is passed through to the backend factory; validation is
// backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// RowSink mirrors flat export rows into one relational table. All cells are
// text; the sink is a faithful copy of the file, not a typed model.
type RowSink interface {
	// EnsureTable creates the target table if it does not exist, with one
	// text column per entry of columns (normalized via NormalizeColumn).
	// Existing tables are left untouched, so a schema change needs a new
	// table or a manual migration.
	EnsureTable(ctx context.Context, table string, columns []string) error

	// InsertRows appends a batch. Every row must have len(columns) cells.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]string) error

	// Close releases backend resources. Call once at shutdown.
	Close()
}

type factory func(ctx context.Context, cfg Config) (RowSink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a sink backend under a kind. Called from backend
// package init functions; registering a kind twice panics to fail fast on
// ambiguous selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a RowSink for the configured kind.
func New(ctx context.Context, cfg Config) (RowSink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// NormalizeColumn converts a flat-file header like "Pricebook.Id" or
// "Entry.Margin__c" into a portable SQL column name ("pricebook_id",
// "entry_margin__c"): lowercase, with every non-alphanumeric run collapsed
// to a single underscore.
func NormalizeColumn(header string) string {
	var b strings.Builder
	b.Grow(len(header))
	prevUnderscore := false
	for _, r := range strings.ToLower(header) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_':
			b.WriteByte('_')
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
			}
			prevUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// NormalizeColumns maps NormalizeColumn over a header row.
func NormalizeColumns(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeColumn(h)
	}
	return out
}
