package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Smart-Speaker/sf-data-service/internal/config"
	"github.com/Smart-Speaker/sf-data-service/internal/export"
	"github.com/Smart-Speaker/sf-data-service/internal/metrics"
	"github.com/Smart-Speaker/sf-data-service/internal/metrics/backends"
	"github.com/Smart-Speaker/sf-data-service/internal/salesforce"
	"github.com/Smart-Speaker/sf-data-service/internal/storage"

	// register all sink backends with the storage factory.
	_ "github.com/Smart-Speaker/sf-data-service/internal/storage/all"
)

// main runs one full export: login, schema discovery, streaming extraction,
// and the three output artifacts (JSON document, CSV, derived TSV).
func main() {
	if err := run(context.Background()); err != nil {
		fatalf("%v", err)
	}
}

// run holds all the work so deferred cleanup (metrics flush, sink close)
// fires on failure too; main owns the single exit path.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := backends.Configure(ctx, os.Getenv("METRICS_BACKEND"), os.Getenv("METRICS_TAGS")); err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
	}
	defer func() {
		if err := metrics.Close(); err != nil {
			log.Printf("metrics: close/flush error: %v", err)
		}
	}()

	client, err := salesforce.Login(ctx, salesforce.Credentials{
		Username:      cfg.Username,
		Password:      cfg.Password,
		SecurityToken: cfg.SecurityToken,
		Domain:        cfg.Domain,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	var sink storage.RowSink
	if cfg.SinkKind != "" {
		sink, err = storage.New(ctx, storage.Config{Kind: cfg.SinkKind, DSN: cfg.SinkDSN})
		if err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		defer sink.Close()
	}

	exp := &export.Exporter{Source: client, Sink: sink}
	sum, err := exp.Run(ctx, export.Options{
		OutputDir:                  cfg.OutputDir,
		JSONName:                   cfg.JSONName,
		CSVName:                    cfg.CSVName,
		PricebookID:                cfg.PricebookID,
		IncludeProductCustomFields: cfg.IncludeProductCustomFields,
		SinkTable:                  cfg.SinkTable,
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Printf("Wrote %d pricebooks, %d entries -> %s\n", sum.Pricebooks, sum.Entries, sum.JSONPath)
	fmt.Printf("Flat file -> %s (and %s)\n", sum.CSVPath, sum.TSVPath)
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
