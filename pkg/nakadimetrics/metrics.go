// Package nakadimetrics is the default Prometheus-backed
// nakadi.MetricsSink. Callers who want a different backend, or no
// metrics at all, never need to import this package: nakadi.MetricsSink
// is satisfied by anything with the right methods.
package nakadimetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is a nakadi.MetricsSink backed by a set of Prometheus
// collectors. The zero value is not usable; construct one with New.
type Sink struct {
	batchHandled   *prometheus.CounterVec
	batchSkipped   *prometheus.CounterVec
	connectAttempt *prometheus.CounterVec
	commitsFlushed prometheus.Counter
	commitNotAll   prometheus.Counter
	commitFailed   prometheus.Counter
	registrySize   prometheus.Gauge
}

// New constructs a Sink and registers its collectors with reg. Passing
// prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps a Sink's metrics out of a host process's default registry
// unless the caller opts in.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		batchHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "nakadi_consumer",
			Name:      "batches_handled_total",
			Help:      "Batches for which the handler returned HandlerContinue.",
		}, []string{"event_type", "partition"}),
		batchSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "nakadi_consumer",
			Name:      "batches_skipped_total",
			Help:      "Batches for which the handler returned HandlerSkip.",
		}, []string{"event_type", "partition"}),
		connectAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "nakadi_consumer",
			Name:      "connect_attempts_total",
			Help:      "Stream connect attempts, labeled by outcome.",
		}, []string{"outcome"}),
		commitsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "nakadi_consumer",
			Name:      "cursors_committed_total",
			Help:      "Cursors submitted in a commit call.",
		}),
		commitNotAll: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "nakadi_consumer",
			Name:      "commit_not_all_increased_total",
			Help:      "Commit calls where the server reported not all offsets increased.",
		}),
		commitFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "nakadi_consumer",
			Name:      "commit_failed_total",
			Help:      "Commit calls that returned an error.",
		}),
		registrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "nakadi_consumer",
			Name:      "commit_registry_size",
			Help:      "Current number of pending (event-type, partition) cursor entries.",
		}),
	}

	reg.MustRegister(
		s.batchHandled,
		s.batchSkipped,
		s.connectAttempt,
		s.commitsFlushed,
		s.commitNotAll,
		s.commitFailed,
		s.registrySize,
	)
	return s
}

func (s *Sink) BatchHandled(eventType, partition string) {
	s.batchHandled.WithLabelValues(eventType, partition).Inc()
}

func (s *Sink) BatchSkipped(eventType, partition string) {
	s.batchSkipped.WithLabelValues(eventType, partition).Inc()
}

func (s *Sink) ConnectAttempt(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	s.connectAttempt.WithLabelValues(outcome).Inc()
}

func (s *Sink) CommitsFlushed(count int) {
	s.commitsFlushed.Add(float64(count))
}

func (s *Sink) CommitNotAllIncreased() {
	s.commitNotAll.Inc()
}

func (s *Sink) CommitFailed() {
	s.commitFailed.Inc()
}

func (s *Sink) RegistrySize(size int) {
	s.registrySize.Set(float64(size))
}
