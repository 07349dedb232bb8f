package nakadi

import (
	"errors"
	"sync"
	"time"
)

// errDispatcherStopped is returned by Process once Stop has been
// called. It is an internal sentinel, not part of the §7 error
// taxonomy: the supervisor never sees it, since it always stops
// reading lines (and therefore calling Process) before it stops the
// dispatcher.
var errDispatcherStopped = errors.New("nakadi: dispatcher stopped")

// Dispatcher routes batches to one worker per (event-type, partition)
// key so that a single partition's batches are always handled in
// arrival order while distinct partitions progress in parallel. A
// worker is created lazily on first sight of a key; its lifetime
// equals the dispatcher's.
type Dispatcher struct {
	factory   HandlerFactory
	committer *Committer
	logger    Logger
	metrics   MetricsSink
	queueSize int
	onAbort   func()

	lifecycle Lifecycle

	mu      sync.Mutex
	workers map[partitionKey]*partitionWorker
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher that hands acked batches to
// committer and builds per-key handlers via factory. onAbort is called
// at most once, from whichever worker goroutine first sees a
// HandlerAbort verdict; the supervisor uses it to end the current
// stream incarnation (the same way a fatal read error would).
func NewDispatcher(factory HandlerFactory, committer *Committer, logger Logger, metrics MetricsSink, queueSize int, onAbort func()) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultWorkerQueueSize
	}
	return &Dispatcher{
		factory:   factory,
		committer: committer,
		logger:    loggerOrNop(logger),
		metrics:   metricsOrNop(metrics),
		queueSize: queueSize,
		onAbort:   onAbort,
		lifecycle: NewLifecycle(),
		workers:   make(map[partitionKey]*partitionWorker),
	}
}

// Process submits batch to the worker for its (event-type, partition)
// key, creating that worker on first sight. It does not block on
// handler execution; it only blocks if the worker's inbox is full,
// which is the intended back-pressure signal back to the read loop.
// Process fails only once the dispatcher has been stopped.
func (d *Dispatcher) Process(batch Batch) error {
	d.mu.Lock()
	if !d.lifecycle.Running() {
		d.mu.Unlock()
		return errDispatcherStopped
	}
	key := batch.key()
	w, ok := d.workers[key]
	if !ok {
		w = newPartitionWorker(key, d.factory.NewHandler(key.eventType, key.partition), d.committer, d.logger, d.metrics, d.queueSize, d.onAbort)
		d.workers[key] = w
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			w.run()
		}()
	}
	d.mu.Unlock()

	w.submit(batch)
	return nil
}

// Stop closes every worker's inbox. Each worker drains whatever is
// already queued, finishes any in-flight handler call, and exits.
// Stop is idempotent.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.lifecycle.Running() {
		d.mu.Unlock()
		return
	}
	d.lifecycle.RequestAbort()
	workers := make([]*partitionWorker, 0, len(d.workers))
	for _, w := range d.workers {
		workers = append(workers, w)
	}
	d.mu.Unlock()

	for _, w := range workers {
		w.closeInbox()
	}

	go func() {
		d.wg.Wait()
		d.lifecycle.MarkStopped()
	}()
}

// IsRunning returns true until every worker has exited following
// Stop. The supervisor awaits this before stopping the commit
// coordinator, ensuring the coordinator sees every ack the workers
// were about to emit.
func (d *Dispatcher) IsRunning() bool {
	return !d.lifecycle.Stopped()
}

// AwaitStopped blocks until every worker has exited or wait elapses.
func (d *Dispatcher) AwaitStopped(wait time.Duration) bool {
	return d.lifecycle.AwaitStopped(wait)
}

// partitionWorker owns exactly one handler instance for its key and
// processes batches from a bounded FIFO channel in arrival order.
type partitionWorker struct {
	key       partitionKey
	handler   Handler
	committer *Committer
	logger    Logger
	metrics   MetricsSink
	inbox     chan Batch
	onAbort   func()

	closeOnce sync.Once
}

func newPartitionWorker(key partitionKey, handler Handler, committer *Committer, logger Logger, metrics MetricsSink, queueSize int, onAbort func()) *partitionWorker {
	return &partitionWorker{
		key:       key,
		handler:   handler,
		committer: committer,
		logger:    logger,
		metrics:   metrics,
		inbox:     make(chan Batch, queueSize),
		onAbort:   onAbort,
	}
}

func (w *partitionWorker) submit(batch Batch) {
	w.inbox <- batch
}

func (w *partitionWorker) closeInbox() {
	w.closeOnce.Do(func() { close(w.inbox) })
}

func (w *partitionWorker) run() {
	for batch := range w.inbox {
		switch w.handler.HandleBatch(batch, batch.Line.Events()) {
		case HandlerContinue:
			w.metrics.BatchHandled(w.key.eventType, w.key.partition)
			w.committer.Commit(batch)
		case HandlerSkip:
			w.metrics.BatchSkipped(w.key.eventType, w.key.partition)
		case HandlerAbort:
			w.logger.Log(LogLevelWarn, "handler requested abort", "event_type", w.key.eventType, "partition", w.key.partition)
			if w.onAbort != nil {
				w.onAbort()
			}
			w.drainAfterAbort()
			return
		}
	}
}

// drainAfterAbort discards any further queued batches without
// invoking the handler again, so the worker still exits once its
// inbox is closed by Stop.
func (w *partitionWorker) drainAfterAbort() {
	for range w.inbox {
	}
}
