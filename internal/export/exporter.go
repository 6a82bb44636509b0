package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Smart-Speaker/sf-data-service/internal/metrics"
)

// RowSink mirrors the flat rows into a relational table. Optional; a nil
// sink disables mirroring without touching the file outputs.
type RowSink interface {
	EnsureTable(ctx context.Context, table string, columns []string) error
	InsertRows(ctx context.Context, table string, columns []string, rows [][]string) error
}

const defaultSinkBatchSize = 500

// Options configures one export run.
type Options struct {
	OutputDir string
	JSONName  string
	CSVName   string

	// PricebookID, when set, restricts the entry extraction to one price
	// book. Must be a validated 15/18-char id.
	PricebookID string

	// IncludeProductCustomFields turns on custom-field discovery for the
	// product entity in addition to the entry entity.
	IncludeProductCustomFields bool

	SinkTable     string
	SinkBatchSize int
}

// Summary reports what one run produced.
type Summary struct {
	Pricebooks    int
	Entries       int
	MultiCurrency bool
	JSONPath      string
	CSVPath       string
	TSVPath       string
	Elapsed       time.Duration
}

// Exporter runs the full extraction pipeline: schema discovery, capability
// probe, price book preload, a single streaming pass that fans every entry
// record out to the nested index and the flat file, the derived tab-delimited
// rewrite, and the document finalizer.
type Exporter struct {
	Source RecordSource
	Sink   RowSink

	Logger *log.Logger

	// now is a test seam for the document timestamp.
	now func() time.Time
}

func (e *Exporter) logf(format string, v ...any) {
	l := e.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, v...)
}

func (e *Exporter) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// Run executes one export. Outputs are only complete if Run returns nil; a
// mid-stream failure leaves partial files behind and reports the error.
func (e *Exporter) Run(ctx context.Context, opt Options) (Summary, error) {
	start := e.clock()

	jsonName := opt.JSONName
	if jsonName == "" {
		jsonName = "pricebooks_export.json"
	}
	csvName := opt.CSVName
	if csvName == "" {
		csvName = "pricebooks_export.csv"
	}
	outDir := opt.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}

	sum := Summary{
		JSONPath: filepath.Join(outDir, jsonName),
		CSVPath:  filepath.Join(outDir, csvName),
		TSVPath:  filepath.Join(outDir, tsvName(csvName)),
	}

	e.logf("stage=discover include_product_fields=%t", opt.IncludeProductCustomFields)
	schema, err := DiscoverSchema(ctx, e.Source, opt.IncludeProductCustomFields)
	if err != nil {
		metrics.IncCounter(metrics.MetricRunsFailed, 1, metrics.Labels{"stage": "discover"})
		return sum, fmt.Errorf("schema discovery: %w", err)
	}
	sum.MultiCurrency = schema.MultiCurrency
	e.logf("stage=discover entry_custom=%d product_custom=%d multi_currency=%t",
		len(schema.EntryCustomFields), len(schema.ProductCustomFields), schema.MultiCurrency)

	index, err := e.preloadPricebooks(ctx)
	if err != nil {
		metrics.IncCounter(metrics.MetricRunsFailed, 1, metrics.Labels{"stage": "preload"})
		return sum, fmt.Errorf("pricebook preload: %w", err)
	}
	e.logf("stage=preload pricebooks=%d", len(index))

	columns := HeaderColumns(schema)
	entries, err := e.streamToFiles(ctx, schema, opt, sum.CSVPath, columns, index)
	if err != nil {
		metrics.IncCounter(metrics.MetricRunsFailed, 1, metrics.Labels{"stage": "stream"})
		return sum, err
	}
	sum.Entries = entries
	metrics.IncCounter(metrics.MetricEntries, float64(entries), nil)

	// The derived file is rewritten from the finished flat file, never from
	// live state, so the two can only diverge if the rewrite itself fails.
	e.logf("stage=derive tsv=%s", sum.TSVPath)
	if err := WriteTSVFromCSV(sum.CSVPath, sum.TSVPath); err != nil {
		metrics.IncCounter(metrics.MetricRunsFailed, 1, metrics.Labels{"stage": "derive"})
		return sum, fmt.Errorf("derive tsv: %w", err)
	}

	doc := FinalizeDocument(index, schema, entries, e.clock())
	sum.Pricebooks = len(doc.Pricebooks)
	if err := WriteDocument(sum.JSONPath, doc); err != nil {
		metrics.IncCounter(metrics.MetricRunsFailed, 1, metrics.Labels{"stage": "document"})
		return sum, err
	}

	sum.Elapsed = e.clock().Sub(start)
	metrics.IncCounter(metrics.MetricRunsCompleted, 1, nil)
	metrics.ObserveHistogram(metrics.MetricRunDuration, sum.Elapsed.Seconds(), nil)
	e.logf("stage=done pricebooks=%d entries=%d elapsed=%s json=%s csv=%s",
		sum.Pricebooks, sum.Entries, sum.Elapsed.Round(time.Millisecond), sum.JSONPath, sum.CSVPath)
	return sum, nil
}

// preloadPricebooks loads the full catalog listing so price books with zero
// entries still appear in the document.
func (e *Exporter) preloadPricebooks(ctx context.Context) (map[string]*Pricebook, error) {
	it, err := e.Source.Query(ctx, PricebookSOQL())
	if err != nil {
		return nil, err
	}
	index := make(map[string]*Pricebook)
	for it.Next(ctx) {
		pb := pricebookFromListing(it.Record())
		index[pb.ID] = pb
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return index, nil
}

func (e *Exporter) streamToFiles(
	ctx context.Context,
	schema Schema,
	opt Options,
	csvPath string,
	columns []string,
	index map[string]*Pricebook,
) (n int, err error) {
	f, err := os.Create(csvPath)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bomWriter(f)
	qw := newQuoteAllWriter(bw)
	if err := qw.WriteRow(columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	var flusher *rowSinkFlusher
	if e.Sink != nil && opt.SinkTable != "" {
		batch := opt.SinkBatchSize
		if batch <= 0 {
			batch = defaultSinkBatchSize
		}
		if err := e.Sink.EnsureTable(ctx, opt.SinkTable, columns); err != nil {
			return 0, fmt.Errorf("sink ensure table: %w", err)
		}
		flusher = &rowSinkFlusher{sink: e.Sink, table: opt.SinkTable, columns: columns, size: batch}
	}

	soql := EntrySOQL(schema, opt.PricebookID)
	e.logf("stage=stream columns=%d filter=%t", len(columns), opt.PricebookID != "")
	it, err := e.Source.Query(ctx, soql)
	if err != nil {
		return 0, fmt.Errorf("entry query: %w", err)
	}

	n, err = streamEntries(ctx, it, index, schema, qw, flusher)
	if err != nil {
		return n, fmt.Errorf("stream entries: %w", err)
	}
	if err := qw.Flush(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	if err := bw.Close(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}

// tsvName derives the tab-delimited filename from the csv filename.
func tsvName(csvName string) string {
	if strings.HasSuffix(csvName, ".csv") {
		return strings.TrimSuffix(csvName, ".csv") + ".tsv"
	}
	return csvName + ".tsv"
}
