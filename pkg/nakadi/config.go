package nakadi

import "time"

const (
	defaultConnectMaxDuration = 300 * time.Second
	defaultMaxBatchAge        = 30 * time.Second
	defaultCommitPollInterval = 100 * time.Millisecond
	defaultWorkerQueueSize    = 64
)

type cfg struct {
	strategy           CommitStrategy
	connectMaxDuration time.Duration
	maxBatchAge        time.Duration
	commitPollInterval time.Duration
	workerQueueSize    int
	logger             Logger
	metrics            MetricsSink
}

func defaultCfg() cfg {
	return cfg{
		strategy:           NewAllBatchesStrategy(),
		connectMaxDuration: defaultConnectMaxDuration,
		maxBatchAge:        defaultMaxBatchAge,
		commitPollInterval: defaultCommitPollInterval,
		workerQueueSize:    defaultWorkerQueueSize,
		logger:             nopLogger{},
		metrics:            nopMetrics{},
	}
}

// Opt configures a Consumer at construction time. Options are applied
// in order, so a later option overrides an earlier one.
type Opt interface {
	apply(*cfg)
}

type optFunc func(*cfg)

func (f optFunc) apply(c *cfg) { f(c) }

// WithCommitStrategy sets the commit strategy the coordinator uses to
// schedule flushes. Default: NewAllBatchesStrategy().
func WithCommitStrategy(s CommitStrategy) Opt {
	return optFunc(func(c *cfg) { c.strategy = s })
}

// WithConnectMaxDuration bounds the wall-clock budget for the connect
// retry loop. Default: 300s.
func WithConnectMaxDuration(d time.Duration) Opt {
	return optFunc(func(c *cfg) { c.connectMaxDuration = d })
}

// WithMaxBatchAge sets the server-negotiated bound used to compute
// each batch's commit deadline. Default: 30s.
func WithMaxBatchAge(d time.Duration) Opt {
	return optFunc(func(c *cfg) { c.maxBatchAge = d })
}

// WithCommitPollInterval overrides the coordinator's liveness poll
// tick. This is not a commit deadline, only how often due entries are
// checked. Default: 100ms.
func WithCommitPollInterval(d time.Duration) Opt {
	return optFunc(func(c *cfg) { c.commitPollInterval = d })
}

// WithWorkerQueueSize sets the bounded channel capacity for each
// partition worker's inbox. Default: 64.
func WithWorkerQueueSize(n int) Opt {
	return optFunc(func(c *cfg) {
		if n > 0 {
			c.workerQueueSize = n
		}
	})
}

// WithLogger sets the Logger sink. Default: a no-op logger. See
// pkg/nakadizap for a zap-backed implementation.
func WithLogger(l Logger) Opt {
	return optFunc(func(c *cfg) { c.logger = loggerOrNop(l) })
}

// WithMetrics sets the MetricsSink. Default: a no-op sink. See
// pkg/nakadimetrics for a Prometheus-backed implementation.
func WithMetrics(m MetricsSink) Opt {
	return optFunc(func(c *cfg) { c.metrics = metricsOrNop(m) })
}
