package export

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestQuoteAllWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := newQuoteAllWriter(&buf)

	rows := [][]string{
		{"a", "", "plain"},
		{`say "hi"`, "comma,inside", "line\nbreak"},
	}
	for _, r := range rows {
		if err := w.WriteRow(r); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := "\"a\",\"\",\"plain\"\n" +
		"\"say \"\"hi\"\"\",\"comma,inside\",\"line\nbreak\"\n"
	if got := buf.String(); got != want {
		t.Fatalf("output:\n got  %q\n want %q", got, want)
	}
}

func TestWriteTSVFromCSVRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	tsvPath := filepath.Join(dir, "out.tsv")

	rows := [][]string{
		{"Pricebook.Id", "Pricebook.Name"},
		{"01s1", "Standard, with comma"},
		{"01s2", "tab\there"},
		{"01s3", `quote "q"`},
		{"01s4", "multi\nline"},
	}

	f, err := os.Create(csvPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bw := bomWriter(f)
	w := newQuoteAllWriter(bw)
	for _, r := range rows {
		if err := w.WriteRow(r); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close bom writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The file must open with a BOM so spreadsheet tools detect UTF-8.
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatalf("csv missing BOM prefix: % x", raw[:3])
	}

	if err := WriteTSVFromCSV(csvPath, tsvPath); err != nil {
		t.Fatalf("WriteTSVFromCSV: %v", err)
	}

	rawTSV, err := os.ReadFile(tsvPath)
	if err != nil {
		t.Fatalf("read tsv: %v", err)
	}
	if !bytes.HasPrefix(rawTSV, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatalf("tsv missing BOM prefix: % x", rawTSV[:3])
	}

	gotCSV, err := ReadTabular(csvPath, ',')
	if err != nil {
		t.Fatalf("ReadTabular csv: %v", err)
	}
	gotTSV, err := ReadTabular(tsvPath, '\t')
	if err != nil {
		t.Fatalf("ReadTabular tsv: %v", err)
	}

	if !reflect.DeepEqual(gotCSV, rows) {
		t.Fatalf("csv cells: got %v, want %v", gotCSV, rows)
	}
	if !reflect.DeepEqual(gotTSV, rows) {
		t.Fatalf("tsv cells: got %v, want %v", gotTSV, rows)
	}
}
