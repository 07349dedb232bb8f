package nakadi

import (
	"fmt"

	"github.com/pkg/errors"
)

var errMissingCursorFields = fmt.Errorf("cursor missing event_type or partition")

// ParseError indicates a framed line could not be parsed. It is fatal
// to the current stream incarnation: a malformed frame breaks framing
// assumptions for every line after it.
type ParseError struct {
	cause error
}

func newParseError(cause error) *ParseError {
	return &ParseError{cause: errors.WithStack(cause)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("nakadi: malformed batch line: %s", e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

// TransportReadError wraps an error surfaced by the line iterator
// while reading an established stream. It is always fatal to the
// current incarnation and triggers a reconnect.
type TransportReadError struct {
	cause error
}

// NewTransportReadError wraps a transport-level read error. Streaming
// client implementations use this to report mid-stream failures
// through the line iterator's error channel.
func NewTransportReadError(cause error) *TransportReadError {
	return &TransportReadError{cause: errors.WithStack(cause)}
}

func (e *TransportReadError) Error() string {
	return fmt.Sprintf("nakadi: stream read failed: %s", e.cause)
}

func (e *TransportReadError) Unwrap() error { return e.cause }

// ConnectError is returned by a StreamingClient's Connect method, or
// synthesized by the supervisor once the connect retry budget is
// exhausted. Permanent errors stop the supervisor outright; temporary
// errors keep the retry loop going until the budget elapses.
type ConnectError struct {
	permanent bool
	attempt   int
	flowID    FlowId
	cause     error
}

// NewPermanentConnectError wraps a connect failure that should stop
// the supervisor without further retries (e.g. authentication
// rejected, subscription not found).
func NewPermanentConnectError(cause error) *ConnectError {
	return &ConnectError{permanent: true, cause: errors.WithStack(cause)}
}

// NewTemporaryConnectError wraps a connect failure the supervisor
// should retry (e.g. a transient network or 5xx error).
func NewTemporaryConnectError(cause error) *ConnectError {
	return &ConnectError{permanent: false, cause: errors.WithStack(cause)}
}

func budgetExhaustedError(attempt int, flowID FlowId) *ConnectError {
	return &ConnectError{
		permanent: true,
		attempt:   attempt,
		flowID:    flowID,
		cause:     fmt.Errorf("connect retry budget exhausted after %d attempts", attempt),
	}
}

func abortedDuringBackoffError(attempt int, flowID FlowId) *ConnectError {
	return &ConnectError{
		permanent: true,
		attempt:   attempt,
		flowID:    flowID,
		cause:     fmt.Errorf("abort requested after %d connect attempts", attempt),
	}
}

// Permanent reports whether the supervisor should stop rather than
// retry.
func (e *ConnectError) Permanent() bool { return e.permanent }

// Attempt is the 1-indexed attempt number this error terminated the
// retry loop on, or 0 if the error came directly from a single
// StreamingClient.Connect call rather than from budget exhaustion or
// an abort during back-off.
func (e *ConnectError) Attempt() int { return e.attempt }

// FlowId is the flow id in flight when this error was produced, if
// any.
func (e *ConnectError) FlowId() FlowId { return e.flowID }

func (e *ConnectError) Error() string {
	if e.attempt > 0 {
		return fmt.Sprintf("nakadi: connect failed (attempt %d, flow %s): %s", e.attempt, e.flowID, e.cause)
	}
	return fmt.Sprintf("nakadi: connect failed: %s", e.cause)
}

func (e *ConnectError) Unwrap() error { return e.cause }

// CommitError wraps a failure returned by a StreamingClient's Commit
// method. It always terminates the commit coordinator's loop; the
// supervisor's next stream incarnation starts a fresh coordinator.
type CommitError struct {
	streamID StreamId
	flowID   FlowId
	cause    error
}

// NewCommitError wraps a transport-level commit failure.
// StreamingClient implementations return this (or any error, which
// the coordinator wraps automatically) from Commit.
func NewCommitError(streamID StreamId, flowID FlowId, cause error) *CommitError {
	return &CommitError{streamID: streamID, flowID: flowID, cause: errors.WithStack(cause)}
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("nakadi: commit failed (stream %s, flow %s): %s", e.streamID, e.flowID, e.cause)
}

func (e *CommitError) Unwrap() error { return e.cause }
