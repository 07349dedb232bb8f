package nakadi

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nakadi-go/nakadi/internal/backoff"
)

const teardownPollInterval = 10 * time.Millisecond

// Consumer is the top-level component: it connects to a subscription's
// stream, reconnecting with bounded retry on failure, and for each
// stream incarnation instantiates a fresh Dispatcher and Committer to
// route batches to per-partition handlers and commit their cursors.
type Consumer struct {
	client  StreamingClient
	factory HandlerFactory
	cfg     cfg

	lifecycle Lifecycle
}

// NewConsumer constructs a Consumer. The returned value is not yet
// running; call Start to begin consuming.
func NewConsumer(client StreamingClient, factory HandlerFactory, opts ...Opt) *Consumer {
	c := defaultCfg()
	for _, opt := range opts {
		opt.apply(&c)
	}
	return &Consumer{
		client:    client,
		factory:   factory,
		cfg:       c,
		lifecycle: NewLifecycle(),
	}
}

// Start begins the connect/consume/reconnect loop in a new goroutine
// and returns immediately.
func (c *Consumer) Start() {
	go c.run()
}

// Running reports whether the consumer has neither been asked to stop
// nor stopped on its own after a permanent connect error.
func (c *Consumer) Running() bool {
	return c.lifecycle.Running()
}

// Stop requests an orderly shutdown: idempotent, safe to call from any
// goroutine, any number of times.
func (c *Consumer) Stop() {
	c.lifecycle.RequestAbort()
}

// AwaitStopped blocks until the consumer has stopped or wait elapses.
func (c *Consumer) AwaitStopped(wait time.Duration) bool {
	return c.lifecycle.AwaitStopped(wait)
}

func (c *Consumer) run() {
	for !c.lifecycle.AbortRequested() {
		c.cfg.logger.Log(LogLevelInfo, "connecting to stream")

		streamID, lines, err := c.connect()
		if err != nil {
			var connErr *ConnectError
			if ce, ok := err.(*ConnectError); ok {
				connErr = ce
			} else {
				connErr = NewPermanentConnectError(err)
			}
			if connErr.Permanent() {
				c.cfg.logger.Log(LogLevelError, "permanent connection error", "error", connErr)
				break
			}
			c.cfg.logger.Log(LogLevelWarn, "temporary connection error", "error", connErr)
			continue
		}

		c.cfg.logger.Log(LogLevelInfo, "connected to stream", "stream_id", streamID)
		c.runIncarnation(streamID, lines)
	}

	c.lifecycle.MarkStopped()
	c.cfg.logger.Log(LogLevelInfo, "consumer stopped")
}

// runIncarnation drives one stream incarnation end to end: it wires a
// fresh Committer and Dispatcher, runs the read loop, and tears both
// down in order before returning.
func (c *Consumer) runIncarnation(streamID StreamId, lines LineIterator) {
	var abortOnce sync.Once
	incarnationAbort := make(chan struct{})
	abort := func() {
		abortOnce.Do(func() { close(incarnationAbort) })
	}

	// onFatal is shared with the dispatcher's onAbort: a commit error
	// that kills the committer must tear down this incarnation the same
	// way a handler abort does, or the dispatcher's workers would keep
	// blocking on a Committer that no longer drains its ack channel.
	committer := StartCommitter(c.client.Clone(), c.cfg.strategy, streamID, c.cfg.logger, c.cfg.metrics, c.cfg.commitPollInterval, abort)

	dispatcher := NewDispatcher(c.factory, committer, c.cfg.logger, c.cfg.metrics, c.cfg.workerQueueSize, abort)

	c.consume(lines, dispatcher, incarnationAbort)

	c.cfg.logger.Log(LogLevelInfo, "stopping dispatcher")
	dispatcher.Stop()
	for dispatcher.IsRunning() {
		dispatcher.AwaitStopped(teardownPollInterval)
	}

	c.cfg.logger.Log(LogLevelInfo, "stopping committer")
	committer.Stop()
	for committer.Running() {
		committer.AwaitStopped(teardownPollInterval)
	}

	_ = lines.Close()
}

func (c *Consumer) consume(lines LineIterator, dispatcher *Dispatcher, incarnationAbort <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.lifecycle.AbortCh():
		case <-incarnationAbort:
		}
		cancel()
	}()

	for {
		if c.lifecycle.AbortRequested() {
			return
		}
		select {
		case <-incarnationAbort:
			c.cfg.logger.Log(LogLevelWarn, "stream incarnation aborted")
			return
		default:
		}

		raw, err := lines.Next(ctx)
		if err != nil {
			c.cfg.logger.Log(LogLevelError, "the connection broke", "error", err)
			return
		}

		if err := c.sendLine(raw, dispatcher); err != nil {
			c.cfg.logger.Log(LogLevelError, "could not process batch", "error", err)
			return
		}
	}
}

func (c *Consumer) sendLine(raw RawLine, dispatcher *Dispatcher) error {
	line, err := ParseBatchLine(raw.Bytes)
	if err != nil {
		return err
	}

	if info := line.Info(); info != nil {
		if utf8.Valid(info) {
			c.cfg.logger.Log(LogLevelInfo, "received info", "info", string(info))
		} else {
			c.cfg.logger.Log(LogLevelWarn, "received info with invalid utf-8", "info", fmt.Sprintf("%q", info))
		}
	}

	if line.IsKeepAlive() {
		c.cfg.logger.Log(LogLevelDebug, "keep alive")
		return nil
	}

	batch := NewBatch(line, raw.ReceivedAt, c.cfg.maxBatchAge)
	return dispatcher.Process(batch)
}

// connect retries StreamingClient.Connect under the configured
// wall-clock budget, sleeping between attempts per the fixed back-off
// schedule, until it succeeds, the budget elapses, or abort is
// requested.
func (c *Consumer) connect() (StreamId, LineIterator, error) {
	deadline := time.Now().Add(c.cfg.connectMaxDuration)
	attempt := 0
	for {
		attempt++
		flowID := NewFlowId()
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-c.lifecycle.AbortCh():
				cancel()
			case <-ctx.Done():
			}
		}()
		streamID, lines, err := c.client.Connect(ctx, flowID)
		cancel()
		c.cfg.metrics.ConnectAttempt(err == nil)
		if err == nil {
			return streamID, lines, nil
		}

		connErr, ok := err.(*ConnectError)
		if !ok {
			connErr = NewTemporaryConnectError(err)
		}
		if connErr.Permanent() {
			return "", nil, connErr
		}

		if time.Now().After(deadline) {
			return "", nil, budgetExhaustedError(attempt, flowID)
		}
		if c.lifecycle.AbortRequested() {
			return "", nil, abortedDuringBackoffError(attempt, flowID)
		}

		delay := backoff.Delay(attempt)
		c.cfg.logger.Log(LogLevelWarn, "failed to connect, retrying", "attempt", attempt, "delay", delay, "error", connErr)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.lifecycle.AbortCh():
			timer.Stop()
			return "", nil, abortedDuringBackoffError(attempt, flowID)
		}
	}
}
