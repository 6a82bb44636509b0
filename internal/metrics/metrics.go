// Package metrics is the instrumentation facade for the export pipeline.
//
// Pipeline code emits through the package-level functions and never imports a
// vendor SDK; the process wires a concrete Backend (or none) at startup. The
// default backend discards everything, so instrumented code needs no nil
// checks and tests run silent.
package metrics

import "sync"

// Labels are optional metric dimensions.
type Labels map[string]string

// Metric names understood by the shipped backends. Unknown names are ignored
// by a backend rather than rejected, so adding an emission site never breaks
// an older backend.
const (
	MetricRunsCompleted = "export_runs_completed_total"
	MetricRunsFailed    = "export_runs_failed_total"
	MetricEntries       = "export_entries_total"
	MetricRunDuration   = "export_run_duration_seconds"
)

// Backend receives metric emissions. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush pushes any buffered state to the destination.
	Flush() error

	// Close stops background work and performs a final Flush.
	Close() error
}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// discarding default.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

func Flush() error { return current().Flush() }

func Close() error { return current().Close() }

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }
