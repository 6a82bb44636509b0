// Package datadog implements a Datadog backend for the internal/metrics
// facade.
//
// Flushing model: export runs are bursty, so emissions are buffered in-memory
// under a mutex, submitted on a periodic ticker, and submitted one final time
// on Close. A process killed before Close loses at most one window of points.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Smart-Speaker/sf-data-service/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "pricebook-export".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; tests set
	// them to avoid real submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK this backend
// needs. The SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead keeps tests off the network.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	completedRuns   float64
	failedRuns      map[string]float64 // stage -> count
	entryCount      float64
	durationSamples []float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client. Client
// construction does not hit the network; submission errors surface from
// Flush.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "pricebook-export"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		failedRuns: make(map[string]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush. Close
// must be called at most once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.MetricRunsCompleted:
		b.completedRuns += delta
	case metrics.MetricRunsFailed:
		stage := labels["stage"]
		if stage == "" {
			stage = "unknown"
		}
		b.failedRuns[stage] += delta
	case metrics.MetricEntries:
		b.entryCount += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, _ metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if name == metrics.MetricRunDuration {
		b.durationSamples = append(b.durationSamples, value)
	}
}

// snapshot is the detached buffer state one Flush submits. Collect+reset
// happens under the lock; payload building and submission happen outside it.
type snapshot struct {
	completedRuns   float64
	failedRuns      map[string]float64
	entryCount      float64
	durationSamples []float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		completedRuns:   b.completedRuns,
		failedRuns:      b.failedRuns,
		entryCount:      b.entryCount,
		durationSamples: b.durationSamples,
	}

	b.completedRuns = 0
	b.failedRuns = make(map[string]float64)
	b.entryCount = 0
	b.durationSamples = nil

	return s
}

func (s snapshot) isEmpty() bool {
	return s.completedRuns == 0 &&
		len(s.failedRuns) == 0 &&
		s.entryCount == 0 &&
		len(s.durationSamples) == 0
}

// Flush submits buffered metrics and resets local buffers. Buffers reset even
// when submission fails so a flaky intake can never block the pipeline.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs the Datadog series for a snapshot at a fixed
// timestamp. Pure, so it carries the whole naming and tagging contract and
// tests can cover it directly.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, 4+len(s.failedRuns))

	if s.completedRuns != 0 {
		series = append(series, countSeries("export.runs.completed", s.completedRuns, b.baseTags, nowUnix))
	}
	for stage, v := range s.failedRuns {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "stage:"+stage)
		series = append(series, countSeries("export.runs.failed", v, tags, nowUnix))
	}
	if s.entryCount != 0 {
		series = append(series, countSeries("export.entries.total", s.entryCount, b.baseTags, nowUnix))
	}

	if len(s.durationSamples) > 0 {
		cp := append([]float64(nil), s.durationSamples...)
		sort.Float64s(cp)
		series = append(series,
			gaugeSeries("export.run.duration_seconds.p50", percentileNearestRank(cp, 0.50), b.baseTags, nowUnix),
			gaugeSeries("export.run.duration_seconds.p95", percentileNearestRank(cp, 0.95), b.baseTags, nowUnix),
			gaugeSeries("export.run.duration_seconds.max", cp[len(cp)-1], b.baseTags, nowUnix),
			gaugeSeries("export.run.duration_seconds.samples", float64(len(cp)), b.baseTags, nowUnix),
		)
	}

	return series
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:export".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
