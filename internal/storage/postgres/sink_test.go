package postgres

import "testing"

func TestBuildCreateSQL(t *testing.T) {
	t.Parallel()

	got := buildCreateSQL("entry_rows", []string{"pricebook_id", "entry_id"})
	want := `CREATE TABLE IF NOT EXISTS "entry_rows" ("pricebook_id" TEXT, "entry_id" TEXT);`
	if got != want {
		t.Fatalf("create sql:\n got  %s\n want %s", got, want)
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	sql, args := buildInsertSQL("entry_rows",
		[]string{"a", "b"},
		[][]string{{"1", "2"}, {"3", "4"}},
	)

	want := `INSERT INTO "entry_rows" ("a", "b") VALUES ($1, $2), ($3, $4);`
	if sql != want {
		t.Fatalf("insert sql:\n got  %s\n want %s", sql, want)
	}
	if len(args) != 4 || args[0] != "1" || args[3] != "4" {
		t.Fatalf("args: %v", args)
	}
}

func TestPgIdentQuoting(t *testing.T) {
	t.Parallel()

	if got := pgIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("pgIdent: %s", got)
	}
}
