package nakadi

import (
	"context"
	"time"
)

// commitEntry is the commit registry's value: the most recently
// ack'd batch for a key, and the fire-at deadline computed once at
// insertion time.
type commitEntry struct {
	batch  Batch
	fireAt time.Time
}

func newCommitEntry(batch Batch, strategy CommitStrategy, now time.Time) commitEntry {
	return commitEntry{batch: batch, fireAt: strategy.fireAt(now, batch)}
}

func (e commitEntry) isDue(now time.Time) bool {
	return !e.fireAt.After(now)
}

// Committer is the commit coordinator: it aggregates cursor advances
// per (event-type, partition) key, schedules commits by deadline, and
// flushes remaining cursors on shutdown. One Committer is created per
// successful stream incarnation and is never reused across
// reconnects.
type Committer struct {
	client   StreamingClient
	strategy CommitStrategy
	streamID StreamId
	logger   Logger
	metrics  MetricsSink

	pollInterval time.Duration
	ackCh        chan Batch

	lifecycle Lifecycle
	onFatal   func()
}

// StartCommitter constructs a Committer and starts its background
// loop. client is cloned by the caller per component contract; this
// Committer owns the clone passed in. onFatal, if non-nil, is invoked
// exactly once if the loop exits because a commit attempt failed; the
// caller uses it the same way Dispatcher's onAbort is used, to tear
// down the rest of the incarnation and let the supervisor reconnect.
// onFatal is never called on an orderly Stop.
func StartCommitter(client StreamingClient, strategy CommitStrategy, streamID StreamId, logger Logger, metrics MetricsSink, pollInterval time.Duration, onFatal func()) *Committer {
	if pollInterval <= 0 {
		pollInterval = defaultCommitPollInterval
	}
	c := &Committer{
		client:       client,
		strategy:     strategy,
		streamID:     streamID,
		logger:       loggerOrNop(logger),
		metrics:      metricsOrNop(metrics),
		pollInterval: pollInterval,
		ackCh:        make(chan Batch, defaultWorkerQueueSize),
		lifecycle:    NewLifecycle(),
		onFatal:      onFatal,
	}
	go c.loop()
	return c
}

// Commit enqueues batch's cursor for eventual commit. It never blocks
// the caller on network I/O; it only blocks if the internal ack
// channel is momentarily full.
func (c *Committer) Commit(batch Batch) {
	c.ackCh <- batch
}

// Running reports whether the coordinator's loop has not yet stopped.
func (c *Committer) Running() bool {
	return !c.lifecycle.Stopped()
}

// Stop requests an orderly shutdown: the loop will flush every
// remaining registry entry once, then transition to stopped. Stop is
// idempotent.
func (c *Committer) Stop() {
	c.lifecycle.RequestAbort()
}

// AwaitStopped blocks until the coordinator has stopped or wait
// elapses.
func (c *Committer) AwaitStopped(wait time.Duration) bool {
	return c.lifecycle.AwaitStopped(wait)
}

func (c *Committer) loop() {
	registry := make(map[partitionKey]commitEntry)

	fatal := false

	for {
		if c.lifecycle.AbortRequested() {
			c.logger.Log(LogLevelInfo, "abort requested, flushing all cursors", "stream_id", c.streamID)
			// Acks handed to Commit before Stop but not yet received are
			// registered first, so the flush-all below covers them too.
			for len(c.ackCh) > 0 {
				c.insert(registry, <-c.ackCh)
			}
			if err := c.flushAll(registry); err != nil {
				c.logger.Log(LogLevelError, "failed to commit remaining cursors", "stream_id", c.streamID, "error", err)
			}
			break
		}

		select {
		case batch, ok := <-c.ackCh:
			if !ok {
				c.logger.Log(LogLevelWarn, "ack channel closed, flushing all cursors", "stream_id", c.streamID)
				if err := c.flushAll(registry); err != nil {
					c.logger.Log(LogLevelError, "failed to commit remaining cursors", "stream_id", c.streamID, "error", err)
				}
				c.lifecycle.MarkStopped()
				c.logger.Log(LogLevelInfo, "committer stopped", "stream_id", c.streamID)
				return
			}
			if !c.insert(registry, batch) {
				fatal = true
			}
		case <-time.After(c.pollInterval):
		}

		if fatal {
			break
		}

		if err := c.flushDue(registry); err != nil {
			c.logger.Log(LogLevelError, "failed to commit cursors", "stream_id", c.streamID, "error", err)
			fatal = true
			break
		}
	}

	c.lifecycle.MarkStopped()
	c.logger.Log(LogLevelInfo, "committer stopped", "stream_id", c.streamID)

	// A commit failure terminates this coordinator but leaves the
	// dispatcher and its workers running; onFatal tears down the whole
	// incarnation so the supervisor reconnects with a fresh one.
	if fatal && c.onFatal != nil {
		c.onFatal()
	}
}

// insert records batch in registry and, for EveryNBatches, performs
// the early flush once the registry reaches the configured size. It
// reports false if that early flush was attempted and failed, in
// which case the caller must treat the loop as fatally wedged.
func (c *Committer) insert(registry map[partitionKey]commitEntry, batch Batch) bool {
	key := batch.key()
	if entry, ok := registry[key]; ok {
		entry.batch = batch
		registry[key] = entry
	} else {
		registry[key] = newCommitEntry(batch, c.strategy, time.Now())
	}
	c.metrics.RegistrySize(len(registry))

	// EveryNBatches entries are not due by time (their fire-at is the
	// batch's own commit deadline, a backstop only): the only way they
	// flush early is this unconditional flush-everything, once the
	// registry reaches the configured size. flushDue would find nothing
	// due here and flush nothing.
	if threshold, ok := c.strategy.earlyFlushThreshold(); ok && len(registry) >= threshold {
		if err := c.flushAll(registry); err != nil {
			c.logger.Log(LogLevelError, "failed to commit cursors", "stream_id", c.streamID, "error", err)
			return false
		}
	}
	return true
}

func (c *Committer) flushDue(registry map[partitionKey]commitEntry) error {
	now := time.Now()
	var keys []partitionKey
	var cursors [][]byte
	for key, entry := range registry {
		if entry.isDue(now) {
			keys = append(keys, key)
			cursors = append(cursors, entry.batch.Line.Cursor())
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.submit(cursors); err != nil {
		return err
	}
	for _, key := range keys {
		delete(registry, key)
	}
	c.metrics.RegistrySize(len(registry))
	return nil
}

// flushAll submits every entry currently in registry, regardless of
// whether it is due yet. Used both for EveryNBatches's early-flush
// path and for the unconditional flush performed on shutdown.
func (c *Committer) flushAll(registry map[partitionKey]commitEntry) error {
	cursors := make([][]byte, 0, len(registry))
	for _, entry := range registry {
		cursors = append(cursors, entry.batch.Line.Cursor())
	}
	if len(cursors) == 0 {
		return nil
	}
	if err := c.submit(cursors); err != nil {
		return err
	}
	for key := range registry {
		delete(registry, key)
	}
	c.metrics.RegistrySize(len(registry))
	return nil
}

func (c *Committer) submit(cursors [][]byte) error {
	flowID := NewFlowId()
	result, err := c.client.Commit(context.Background(), c.streamID, cursors, flowID)
	if err != nil {
		c.metrics.CommitFailed()
		if ce, ok := err.(*CommitError); ok {
			return ce
		}
		return NewCommitError(c.streamID, flowID, err)
	}

	c.metrics.CommitsFlushed(len(cursors))
	switch result {
	case AllOffsetsIncreased:
		c.logger.Log(LogLevelInfo, "committed cursors", "stream_id", c.streamID, "flow_id", flowID, "count", len(cursors))
	case NotAllOffsetsIncreased:
		c.metrics.CommitNotAllIncreased()
		c.logger.Log(LogLevelInfo, "not all offsets increased", "stream_id", c.streamID, "flow_id", flowID, "count", len(cursors))
	}
	return nil
}
