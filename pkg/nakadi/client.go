package nakadi

import "context"

// CommitResult is the outcome of a successful Commit call.
type CommitResult int8

const (
	// AllOffsetsIncreased means every submitted cursor advanced the
	// server-side position for its partition.
	AllOffsetsIncreased CommitResult = iota
	// NotAllOffsetsIncreased means the server accepted the request but
	// some cursors did not advance (already committed, or stale). This
	// is informational: the coordinator still removes those entries.
	NotAllOffsetsIncreased
)

// LineIterator yields raw lines from one established stream
// incarnation until the server closes the stream or a read fails.
// Next blocks until a line is available, the stream ends, or ctx is
// done. A non-nil error is always a *TransportReadError and is fatal
// to the current incarnation. Close releases any resources the
// iterator holds; it is always called exactly once, after Next has
// returned a non-nil error or ctx has been cancelled.
type LineIterator interface {
	Next(ctx context.Context) (RawLine, error)
	Close() error
}

// StreamingClient is the external transport collaborator this package
// consumes but does not implement: TLS, authentication token refresh
// and chunked line framing are all its responsibility. Implementations
// must be safe to Clone and to use concurrently across goroutines; the
// core clones the client once per component it hands it to (the
// coordinator and, indirectly through Connect, the supervisor itself).
type StreamingClient interface {
	// Connect opens a new stream incarnation for the client's
	// subscription, tagging the request with flowID for server-side
	// tracing. A non-nil error is always a *ConnectError.
	Connect(ctx context.Context, flowID FlowId) (StreamId, LineIterator, error)

	// Commit submits cursors for streamID, tagging the request with
	// flowID. A non-nil error is wrapped by the caller into a
	// *CommitError if it is not already one.
	Commit(ctx context.Context, streamID StreamId, cursors [][]byte, flowID FlowId) (CommitResult, error)

	// SubscriptionId returns the stable subscription identity this
	// client consumes.
	SubscriptionId() SubscriptionId

	// Clone returns a handle sharing the same underlying connections
	// but safe to hand to a different goroutine/component.
	Clone() StreamingClient
}
