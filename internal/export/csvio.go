package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Tabular I/O discipline:
//
//   - The primary flat file is comma-delimited, UTF-8 with BOM, and quotes
//     EVERY cell, doubling embedded quotes. That makes any cell value,
//     including ones containing the delimiter, quotes, or newlines, round
//     trip exactly through a standard RFC 4180 reader.
//   - The derived file is tab-delimited, UTF-8 with BOM, minimal quoting.
//
// encoding/csv's writer only quotes when needed, so the quote-all emitter
// writes cells itself; reading back uses encoding/csv, which accepts the
// quote-all form natively.

// quoteAllWriter emits rows with every cell quoted.
type quoteAllWriter struct {
	w *bufio.Writer
}

func newQuoteAllWriter(w io.Writer) *quoteAllWriter {
	return &quoteAllWriter{w: bufio.NewWriter(w)}
}

// WriteRow writes one record terminated by "\n".
func (q *quoteAllWriter) WriteRow(cells []string) error {
	for i, c := range cells {
		if i > 0 {
			if err := q.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := q.w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := q.w.WriteString(strings.ReplaceAll(c, `"`, `""`)); err != nil {
			return err
		}
		if err := q.w.WriteByte('"'); err != nil {
			return err
		}
	}
	return q.w.WriteByte('\n')
}

func (q *quoteAllWriter) Flush() error {
	return q.w.Flush()
}

// bomWriter wraps w so the first write is preceded by a UTF-8 BOM. The
// returned writer must be closed to drain the transform buffer; closing it
// does not close w.
func bomWriter(w io.Writer) *transform.Writer {
	return transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
}

// bomReader strips a leading UTF-8 BOM when present.
func bomReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// WriteTSVFromCSV re-reads a finished quote-all CSV file and rewrites it
// tab-delimited, preserving cell contents and row order exactly. It must run
// only after the CSV handle is closed; it is a distinct pass, never
// interleaved with the streaming writer.
func WriteTSVFromCSV(csvPath, tsvPath string) (err error) {
	in, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer in.Close()

	out, err := os.Create(tsvPath)
	if err != nil {
		return fmt.Errorf("create tsv: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	r := csv.NewReader(bomReader(in))
	r.FieldsPerRecord = -1

	bw := bomWriter(out)
	w := csv.NewWriter(bw)
	w.Comma = '\t'

	for {
		rec, rerr := r.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read csv: %w", rerr)
		}
		if werr := w.Write(rec); werr != nil {
			return fmt.Errorf("write tsv: %w", werr)
		}
	}

	w.Flush()
	if werr := w.Error(); werr != nil {
		return fmt.Errorf("flush tsv: %w", werr)
	}
	if werr := bw.Close(); werr != nil {
		return fmt.Errorf("flush tsv: %w", werr)
	}
	return nil
}

// ReadTabular parses a finished export file (either delimiter) back into
// rows. Shared by the verification pass and tests.
func ReadTabular(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bomReader(f))
	r.Comma = comma
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
