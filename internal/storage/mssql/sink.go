package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/Smart-Speaker/sf-data-service/internal/storage"
)

// SQL Server caps a statement at 2100 parameters; large batches are split so
// each INSERT stays safely under it.
const maxParams = 2000

// Sink implements storage.RowSink for SQL Server.
type Sink struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.RowSink, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	fmt.Fprintf(&b, "IF OBJECT_ID(N'%s', N'U') IS NULL ", strings.ReplaceAll(table, "'", "''"))
	b.WriteString("CREATE TABLE ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range storage.NormalizeColumns(columns) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
		b.WriteString(" NVARCHAR(MAX)")
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
	cols := storage.NormalizeColumns(columns)

	perRow := len(cols)
	chunk := maxParams / perRow
	if chunk < 1 {
		chunk = 1
	}

	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		query, args := buildInsertSQL(table, cols, rows[start:end])
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func buildInsertSQL(table string, columns []string, rows [][]string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

func msIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
