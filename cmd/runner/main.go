package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Smart-Speaker/sf-data-service/internal/config"
	"github.com/Smart-Speaker/sf-data-service/internal/export"
	"github.com/Smart-Speaker/sf-data-service/internal/metrics"
	"github.com/Smart-Speaker/sf-data-service/internal/metrics/backends"
	"github.com/Smart-Speaker/sf-data-service/internal/remap"
	"github.com/Smart-Speaker/sf-data-service/internal/salesforce"
	"github.com/Smart-Speaker/sf-data-service/internal/storage"

	_ "github.com/Smart-Speaker/sf-data-service/internal/storage/all"
)

// The runner keeps the export fresh: one cycle runs the full export and then
// the remap step, on a fixed schedule. A failed export skips the remap for
// that cycle (never reshape a stale or partial document) but does not stop
// the scheduler.
func main() {
	var (
		schedule string
		logDir   string
		once     bool
	)
	flag.StringVar(&schedule, "schedule", envDefault("RUNNER_SCHEDULE", "@every 5m"), "cron schedule for export cycles")
	flag.StringVar(&logDir, "log-dir", envDefault("RUNNER_LOG_DIR", "logs"), "directory for rotating runner logs")
	flag.BoolVar(&once, "once", false, "run a single cycle and exit")
	flag.Parse()

	rotating := &lumberjack.Logger{
		Filename: filepath.Join(logDir, "runner.log"),
		MaxSize:  20, // megabytes per file
		MaxAge:   30, // days before rotated files are deleted
		Compress: true,
	}
	logger := log.New(io.MultiWriter(os.Stdout, rotating), "", log.LstdFlags|log.LUTC)

	// Scheduled cycles emit run counters and durations through the facade;
	// the backend's own flush loop handles periodic submission.
	if err := backends.Configure(context.Background(), os.Getenv("METRICS_BACKEND"), os.Getenv("METRICS_TAGS")); err != nil {
		logger.Printf("stage=runner msg=\"metrics disabled\" err=%q", err)
	}
	defer func() {
		if err := metrics.Close(); err != nil {
			logger.Printf("stage=runner msg=\"metrics close\" err=%q", err)
		}
	}()

	if once {
		runCycle(logger)
		return
	}

	c := cron.New()
	var running sync.Mutex
	_, err := c.AddFunc(schedule, func() {
		// A cycle slower than the schedule must not stack a second one.
		if !running.TryLock() {
			logger.Printf("stage=runner msg=\"previous cycle still running, skipping\"")
			return
		}
		defer running.Unlock()
		runCycle(logger)
	})
	if err != nil {
		logger.Fatalf("runner: bad schedule %q: %v", schedule, err)
	}

	logger.Printf("stage=runner schedule=%q log_dir=%s", schedule, logDir)

	// First cycle runs immediately; cron fires the rest.
	running.Lock()
	runCycle(logger)
	running.Unlock()

	c.Run()
}

func runCycle(logger *log.Logger) {
	start := time.Now()
	logger.Printf("stage=cycle msg=start")

	if err := runExportAndRemap(logger); err != nil {
		logger.Printf("stage=cycle msg=failed err=%q elapsed=%s", err, time.Since(start).Round(time.Millisecond))
		return
	}
	logger.Printf("stage=cycle msg=done elapsed=%s", time.Since(start).Round(time.Millisecond))
}

func runExportAndRemap(logger *log.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// A fresh login per cycle keeps long-running schedules immune to
	// session expiry.
	client, err := salesforce.Login(ctx, salesforce.Credentials{
		Username:      cfg.Username,
		Password:      cfg.Password,
		SecurityToken: cfg.SecurityToken,
		Domain:        cfg.Domain,
	})
	if err != nil {
		return err
	}

	var sink storage.RowSink
	if cfg.SinkKind != "" {
		sink, err = storage.New(ctx, storage.Config{Kind: cfg.SinkKind, DSN: cfg.SinkDSN})
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	exp := &export.Exporter{Source: client, Sink: sink, Logger: logger}
	sum, err := exp.Run(ctx, export.Options{
		OutputDir:                  cfg.OutputDir,
		JSONName:                   cfg.JSONName,
		CSVName:                    cfg.CSVName,
		PricebookID:                cfg.PricebookID,
		IncludeProductCustomFields: cfg.IncludeProductCustomFields,
		SinkTable:                  cfg.SinkTable,
	})
	if err != nil {
		return err
	}

	m := &remap.Remapper{Logger: logger}
	_, err = m.Run(remap.Options{
		InputJSON:   sum.JSONPath,
		OutputDir:   cfg.RemapOutputDir,
		FixedUserID: cfg.RemapFixedUserID,
	})
	return err
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
