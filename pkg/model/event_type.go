// Package model holds the descriptive, wire-shape types for a Nakadi
// event type and subscription: the vocabulary a client needs to talk
// about what it is consuming, without any of the registry HTTP calls
// (creating, updating, or deleting event types) that a full admin
// client would add. Nothing here does I/O.
package model

import (
	"time"

	"github.com/nakadi-go/nakadi/pkg/nakadi"
)

// SubscriptionId is re-exported from pkg/nakadi: it is the one
// identifier the core consumer loop itself needs, so it is defined
// there and aliased here rather than the other way around.
type SubscriptionId = nakadi.SubscriptionId

// EventTypeName is the unique name of an event type, e.g.
// "order.order-created".
type EventTypeName string

// Category determines which default validations and schema
// enrichments apply to events of this type.
type Category int8

const (
	// CategoryUndefined applies no predefined enrichment; the
	// effective schema equals the submitted schema exactly.
	CategoryUndefined Category = iota
	// CategoryData marks events as DataChangeEvents: the effective
	// schema adds metadata plus data_op and data_type fields.
	CategoryData
	// CategoryBusiness marks events as BusinessEvents: the effective
	// schema adds metadata alongside the submitted top-level fields.
	CategoryBusiness
)

func (c Category) String() string {
	switch c {
	case CategoryData:
		return "data"
	case CategoryBusiness:
		return "business"
	default:
		return "undefined"
	}
}

// PartitionStrategy determines how an event is assigned to a
// partition. The Nakadi default is PartitionRandom.
type PartitionStrategy int8

const (
	// PartitionRandom distributes events evenly across partitions.
	PartitionRandom PartitionStrategy = iota
	// PartitionHash routes events with equal PartitionKeyFields values
	// to the same partition.
	PartitionHash
	// PartitionUserDefined requires the producer to set the target
	// partition explicitly; publishing fails if it does not exist.
	PartitionUserDefined
)

func (p PartitionStrategy) String() string {
	switch p {
	case PartitionHash:
		return "hash"
	case PartitionUserDefined:
		return "user_defined"
	default:
		return "random"
	}
}

// CompatibilityMode governs which schema evolutions are permitted
// once an event type has been created. The Nakadi default is
// CompatibilityForward.
type CompatibilityMode int8

const (
	// CompatibilityCompatible permits only new optional properties.
	CompatibilityCompatible CompatibilityMode = iota
	// CompatibilityForward additionally permits any schema-compatible
	// change; consumers following the robustness principle stay safe.
	CompatibilityForward
	// CompatibilityNone permits any schema modification, including
	// breaking ones.
	CompatibilityNone
)

func (c CompatibilityMode) String() string {
	switch c {
	case CompatibilityCompatible:
		return "compatible"
	case CompatibilityNone:
		return "none"
	default:
		return "forward"
	}
}

// CleanupPolicy governs how Nakadi discards old events. The default
// is CleanupDelete.
type CleanupPolicy int8

const (
	// CleanupDelete discards events once the retention time elapses.
	CleanupDelete CleanupPolicy = iota
	// CleanupCompact keeps only the latest event per compaction key
	// within a partition.
	CleanupCompact
)

func (c CleanupPolicy) String() string {
	if c == CleanupCompact {
		return "compact"
	}
	return "delete"
}

// PartitionKey is one field path considered by PartitionHash.
type PartitionKey string

// PartitionKeyFields lists the field paths hashed under
// PartitionHash. Required when PartitionStrategy is PartitionHash,
// and must be empty otherwise.
type PartitionKeyFields []PartitionKey

// OwningApplication identifies the application responsible for an
// event type, as registered with the owning organization's directory.
type OwningApplication string

// AuthorizationAttribute is a single (data type, value) pair granting
// a permission — e.g. reading an event type's data, or administering
// it — to a principal such as a user or service.
type AuthorizationAttribute struct {
	DataType string
	Value    string
}

// RetentionTime is how long Nakadi guarantees an event type's events
// remain available to consumers.
type RetentionTime time.Duration

// EventType is the descriptive metadata for a Nakadi event type: the
// parts a consumer needs to reason about what it is reading, without
// the schema-registry operations (create, update, delete) that
// managing an event type's lifecycle would additionally require.
type EventType struct {
	Name               EventTypeName
	OwningApplication  OwningApplication
	Category           Category
	PartitionStrategy  PartitionStrategy
	PartitionKeyFields PartitionKeyFields
	CompatibilityMode  CompatibilityMode
	CleanupPolicy      CleanupPolicy
	RetentionTime      RetentionTime
	Authorization      []AuthorizationAttribute
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
