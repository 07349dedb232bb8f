package nakadi

import "github.com/google/uuid"

// StreamId is the opaque identifier the server assigns to a single
// stream incarnation at connect time. It has no meaning to the client
// beyond correlating a connection's batches and commits.
type StreamId string

// SubscriptionId is the stable, caller-supplied identity of the
// durable subscription being consumed. Stream incarnations come and
// go; the SubscriptionId they resume from does not change.
type SubscriptionId string

// FlowId is a per-request trace identifier. A fresh FlowId is
// generated for every outgoing connect or commit call so that server
// logs can be correlated back to a single client request.
type FlowId string

// NewFlowId generates a fresh, random FlowId.
func NewFlowId() FlowId {
	return FlowId(uuid.New().String())
}
