package broker

import (
	"io"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// brokerMetrics holds the counters of one broker. Gauges read atomics that
// the broker loop updates after every tick, the loop state itself is never
// touched from the scraping goroutine.
type brokerMetrics struct {
	set *metrics.Set

	requests    *metrics.Counter
	dispatched  *metrics.Counter
	deferred    *metrics.Counter
	timeouts    *metrics.Counter
	failures    *metrics.Counter
	completions *metrics.Counter
	adminCalls  *metrics.Counter
	flushes     *metrics.Counter
	flushErrors *metrics.Counter
	purged      *metrics.Counter
	queueWait   *metrics.Histogram

	pending     atomic.Int64
	idleWorkers atomic.Int64
	busyWorkers atomic.Int64
	activeTrees atomic.Int64
}

func newBrokerMetrics() *brokerMetrics {
	m := &brokerMetrics{set: metrics.NewSet()}

	m.requests = m.set.NewCounter("scallion_requests_total")
	m.dispatched = m.set.NewCounter("scallion_dispatched_total")
	m.deferred = m.set.NewCounter("scallion_deferred_total")
	m.timeouts = m.set.NewCounter(`scallion_responses_total{status="timeout"}`)
	m.failures = m.set.NewCounter(`scallion_responses_total{status="failure"}`)
	m.completions = m.set.NewCounter(`scallion_responses_total{status="complete"}`)
	m.adminCalls = m.set.NewCounter(`scallion_responses_total{status="nontree"}`)
	m.flushes = m.set.NewCounter("scallion_flushes_total")
	m.flushErrors = m.set.NewCounter("scallion_flush_errors_total")
	m.purged = m.set.NewCounter("scallion_workers_purged_total")
	m.queueWait = m.set.NewHistogram("scallion_queue_wait_seconds")

	m.set.NewGauge("scallion_pending_requests", func() float64 {
		return float64(m.pending.Load())
	})
	m.set.NewGauge(`scallion_workers{state="idle"}`, func() float64 {
		return float64(m.idleWorkers.Load())
	})
	m.set.NewGauge(`scallion_workers{state="busy"}`, func() float64 {
		return float64(m.busyWorkers.Load())
	})
	m.set.NewGauge("scallion_active_trees", func() float64 {
		return float64(m.activeTrees.Load())
	})
	return m
}

// WritePrometheus writes the broker metrics in Prometheus text format.
func (b *Broker) WritePrometheus(w io.Writer) {
	b.metrics.set.WritePrometheus(w)
}
