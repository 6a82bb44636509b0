package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Smart-Speaker/sf-data-service/internal/storage"
)

// Sink implements storage.RowSink for Postgres. Batches go out as a single
// multi-row INSERT per call.
type Sink struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.RowSink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Sink{pool: pool}, nil
}

func (s *Sink) Close() {
	s.pool.Close()
}

func (s *Sink) EnsureTable(ctx context.Context, table string, columns []string) error {
	sql := buildCreateSQL(table, storage.NormalizeColumns(columns))
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Sink) InsertRows(ctx context.Context, table string, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	sql, args := buildInsertSQL(table, storage.NormalizeColumns(columns), rows)
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// buildCreateSQL is pure so placeholder and quoting behavior is unit
// testable without a database.
func buildCreateSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
		b.WriteString(" TEXT")
	}
	b.WriteString(");")
	return b.String()
}

func buildInsertSQL(table string, columns []string, rows [][]string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
