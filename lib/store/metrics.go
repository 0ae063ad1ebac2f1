package store

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// Metrics collects the counters and timers of one or more backends.
// Counters are exported in the prometheus text format, timers as go-metrics text.
type Metrics struct {
	set      *metrics.Set
	registry gometrics.Registry
}

// NewMetrics returns an empty metrics collection
func NewMetrics() *Metrics {
	return &Metrics{
		set:      metrics.NewSet(),
		registry: gometrics.NewRegistry(),
	}
}

func (m *Metrics) counter(name string) *metrics.Counter {
	return m.set.GetOrCreateCounter(name)
}

func (m *Metrics) recordInit(outcome InitOutcome) {
	m.counter(fmt.Sprintf(`syncstore_store_init_total{outcome=%q}`, outcome)).Inc()
}

func (m *Metrics) recordRecovery(r Recovery) {
	m.counter(fmt.Sprintf(`syncstore_store_corruption_recovery_total{result=%q}`, r)).Inc()
}

func (m *Metrics) recordRead(n int) {
	m.counter(`syncstore_store_records_read_total`).Add(n)
}

func (m *Metrics) recordWrite(n int) {
	m.counter(`syncstore_store_operations_written_total`).Add(n)
}

func (m *Metrics) recordFailure(op string) {
	m.counter(fmt.Sprintf(`syncstore_store_errors_total{op=%q}`, op)).Inc()
}

// timed starts a timer for op, the returned func stops it
func (m *Metrics) timed(op string) func() {
	start := time.Now()
	return func() {
		gometrics.GetOrRegisterTimer("store."+op, m.registry).UpdateSince(start)
	}
}

// CounterValue returns the current value of the counter with the given full name
// (including labels), e.g. `syncstore_store_init_total{outcome="success"}`.
func (m *Metrics) CounterValue(name string) uint64 {
	return m.counter(name).Get()
}

// TimerCount returns how often the operation op was timed
func (m *Metrics) TimerCount(op string) int64 {
	return gometrics.GetOrRegisterTimer("store."+op, m.registry).Count()
}

// WritePrometheus writes all counters in the prometheus text format
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// WriteTimers writes a snapshot of all timers
func (m *Metrics) WriteTimers(w io.Writer) {
	gometrics.WriteOnce(m.registry, w)
}
