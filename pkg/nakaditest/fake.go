// Package nakaditest provides an in-memory fake nakadi.StreamingClient
// and nakadi.LineIterator for exercising the core consumer, dispatcher
// and committer without a real Nakadi server. It is meant for this
// module's own tests and for callers writing tests against their own
// nakadi.Handler implementations.
package nakaditest

import (
	"context"
	"sync"

	"github.com/nakadi-go/nakadi/pkg/nakadi"
)

// CommitCall records one Commit invocation observed by a Client.
type CommitCall struct {
	StreamID nakadi.StreamId
	Cursors  [][]byte
	FlowID   nakadi.FlowId
}

// Client is a scriptable fake nakadi.StreamingClient. Lines is the
// queue of raw lines (and/or injected errors) every incarnation reads
// from Next, in order, until the queue is exhausted, at which point
// Next blocks until ctx is done (Close does not unblock it).
// ConnectErr, if set, is returned by every Connect call instead of
// succeeding. CommitResult/CommitErr control every Commit call's
// outcome.
//
// All fields must be set before the client is handed to a Consumer;
// Commits is safe to call concurrently with the consumer running.
type Client struct {
	Subscription nakadi.SubscriptionId
	Lines        []Line
	ConnectErr   error
	CommitResult nakadi.CommitResult
	CommitErr    error

	// Incarnations, if non-empty, overrides Lines: the Nth Connect call
	// gets Incarnations[N] (clamped to the last entry once exhausted),
	// letting a test script a dropped-stream-then-redelivers sequence.
	Incarnations [][]Line

	mu       sync.Mutex
	commits  []CommitCall
	streamID int
}

// Line is one entry in a Client's scripted line queue: either Bytes or
// Err is set, never both.
type Line struct {
	Bytes []byte
	Err   error
}

// NewClient constructs a fake client for subscription sub, scripted to
// emit lines in order on every connect.
func NewClient(sub nakadi.SubscriptionId, lines ...Line) *Client {
	return &Client{Subscription: sub, Lines: lines}
}

// Connect implements nakadi.StreamingClient. Each call gets an
// independent LineIterator over a fresh copy of Lines, as though the
// server replayed the stream from its last committed cursor.
func (c *Client) Connect(ctx context.Context, flowID nakadi.FlowId) (nakadi.StreamId, nakadi.LineIterator, error) {
	if c.ConnectErr != nil {
		return "", nil, c.ConnectErr
	}
	c.mu.Lock()
	c.streamID++
	id := c.streamID
	script := c.Lines
	if len(c.Incarnations) > 0 {
		idx := id - 1
		if idx >= len(c.Incarnations) {
			idx = len(c.Incarnations) - 1
		}
		script = c.Incarnations[idx]
	}
	c.mu.Unlock()

	lines := make([]Line, len(script))
	copy(lines, script)
	return streamIDOf(id), &lineIterator{lines: lines}, nil
}

// Commit implements nakadi.StreamingClient.
func (c *Client) Commit(ctx context.Context, streamID nakadi.StreamId, cursors [][]byte, flowID nakadi.FlowId) (nakadi.CommitResult, error) {
	c.mu.Lock()
	stored := make([][]byte, len(cursors))
	copy(stored, cursors)
	c.commits = append(c.commits, CommitCall{StreamID: streamID, Cursors: stored, FlowID: flowID})
	c.mu.Unlock()

	if c.CommitErr != nil {
		return 0, c.CommitErr
	}
	return c.CommitResult, nil
}

// SubscriptionId implements nakadi.StreamingClient.
func (c *Client) SubscriptionId() nakadi.SubscriptionId { return c.Subscription }

// Clone implements nakadi.StreamingClient. The fake has no per-handle
// state worth isolating, so Clone returns c itself: every clone
// observes the same Commits.
func (c *Client) Clone() nakadi.StreamingClient { return c }

// Commits returns every Commit call observed so far, in order.
func (c *Client) Commits() []CommitCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CommitCall, len(c.commits))
	copy(out, c.commits)
	return out
}

func streamIDOf(n int) nakadi.StreamId {
	digits := [...]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}
	if n == 0 {
		return "stream-0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return nakadi.StreamId("stream-" + string(buf))
}

// lineIterator implements nakadi.LineIterator over a fixed, in-memory
// slice of Line values.
type lineIterator struct {
	mu     sync.Mutex
	lines  []Line
	offset int
	closed bool
}

func (it *lineIterator) Next(ctx context.Context) (nakadi.RawLine, error) {
	it.mu.Lock()
	if it.offset < len(it.lines) {
		line := it.lines[it.offset]
		it.offset++
		it.mu.Unlock()
		if line.Err != nil {
			return nakadi.RawLine{}, line.Err
		}
		return nakadi.RawLine{Bytes: line.Bytes}, nil
	}
	it.mu.Unlock()

	// The scripted queue is exhausted: block like a real stream with
	// nothing left to send, until the caller gives up.
	<-ctx.Done()
	return nakadi.RawLine{}, nakadi.NewTransportReadError(ctx.Err())
}

func (it *lineIterator) Close() error {
	it.mu.Lock()
	it.closed = true
	it.mu.Unlock()
	return nil
}
