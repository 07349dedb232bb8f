package nakadi

import (
	"encoding/json"
	"time"
)

// RawLine is the bytes of one server-sent frame plus the wall-clock
// time the client received it.
type RawLine struct {
	Bytes      []byte
	ReceivedAt time.Time
}

// wireEnvelope is the on-the-wire shape of one framed line. Fields are
// kept as json.RawMessage so the core never interprets event content:
// cursor, info and events are retained as opaque byte slices.
type wireEnvelope struct {
	Cursor wireCursor      `json:"cursor"`
	Info   json.RawMessage `json:"info,omitempty"`
	Events json.RawMessage `json:"events,omitempty"`
}

type wireCursor struct {
	EventType json.RawMessage `json:"event_type"`
	Partition json.RawMessage `json:"partition"`
}

// BatchLine is a parsed frame: cursor, event-type and partition bytes,
// plus optional info and events payload bytes. A BatchLine with no
// Events payload is a keep-alive.
type BatchLine struct {
	cursor    []byte
	eventType []byte
	partition []byte
	info      []byte
	events    []byte
}

// ParseBatchLine parses one framed line's bytes into a BatchLine. A
// malformed envelope returns a *ParseError, which is fatal to the
// current stream incarnation.
func ParseBatchLine(raw []byte) (BatchLine, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return BatchLine{}, newParseError(err)
	}

	eventType, err := unquoteJSONString(env.Cursor.EventType)
	if err != nil {
		return BatchLine{}, newParseError(err)
	}
	partition, err := unquoteJSONString(env.Cursor.Partition)
	if err != nil {
		return BatchLine{}, newParseError(err)
	}
	if len(eventType) == 0 || len(partition) == 0 {
		return BatchLine{}, newParseError(errMissingCursorFields)
	}

	return BatchLine{
		cursor:    append([]byte(nil), raw...),
		eventType: eventType,
		partition: partition,
		info:      env.Info,
		events:    env.Events,
	}, nil
}

func unquoteJSONString(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Cursor returns the full cursor bytes for this line, i.e. the raw
// frame: the offset it carries is opaque and only meaningful to the
// server, so the whole frame is retained verbatim as the cursor to
// commit back.
func (b BatchLine) Cursor() []byte { return b.cursor }

// EventType returns the event-type bytes parsed from the cursor.
func (b BatchLine) EventType() []byte { return b.eventType }

// Partition returns the partition bytes parsed from the cursor.
func (b BatchLine) Partition() []byte { return b.partition }

// Info returns the optional info bytes, or nil if absent.
func (b BatchLine) Info() []byte { return b.info }

// Events returns the optional events payload bytes, or nil if absent.
func (b BatchLine) Events() []byte { return b.events }

// IsKeepAlive reports whether this line carries no events payload.
// Keep-alive lines advance no cursor.
func (b BatchLine) IsKeepAlive() bool { return len(b.events) == 0 }

// partitionKey identifies a (event-type, partition) pair. It is the
// routing key used by the dispatcher and the commit registry.
type partitionKey struct {
	eventType string
	partition string
}

func (b BatchLine) key() partitionKey {
	return partitionKey{eventType: string(b.eventType), partition: string(b.partition)}
}

// Batch is a parsed BatchLine together with its reception timestamp
// and derived commit deadline.
type Batch struct {
	Line           BatchLine
	ReceivedAt     time.Time
	CommitDeadline time.Time
}

// NewBatch derives a Batch from a parsed line, its reception
// timestamp, and the stream's configured maximum batch age.
func NewBatch(line BatchLine, receivedAt time.Time, maxBatchAge time.Duration) Batch {
	return Batch{
		Line:           line,
		ReceivedAt:     receivedAt,
		CommitDeadline: receivedAt.Add(maxBatchAge),
	}
}

func (b Batch) key() partitionKey { return b.Line.key() }
