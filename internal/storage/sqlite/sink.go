package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Smart-Speaker/sf-data-service/internal/storage"
)

// Sink implements storage.RowSink for SQLite. Intended for local runs and
// integration tests; cells keep TEXT affinity.
type Sink struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.RowSink, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close() { _ = s.db.Close() }

func (s *Sink) EnsureTable(ctx context.Context, table string, columns []string) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range storage.NormalizeColumns(columns) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
		b.WriteString(" TEXT")
	}
	b.WriteString(");")

	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Sink) InsertRows(ctx context.Context, table string, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildInsertSQL(table, storage.NormalizeColumns(columns), rows)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func buildInsertSQL(table string, columns []string, rows [][]string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
