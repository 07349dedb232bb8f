package nakadi

import "time"

// CommitStrategyKind selects how the commit coordinator schedules the
// fire-at deadline for a newly observed (event-type, partition) key.
// See CommitStrategy for the constructors.
type CommitStrategyKind int8

const (
	// AllBatches fires as soon as possible: fire-at is set to the
	// insertion time.
	AllBatches CommitStrategyKind = iota
	// EveryNBatches accumulates entries until either the registry holds
	// at least N entries right after an insert (triggering an early,
	// synchronous flush) or a batch's own commit deadline arrives,
	// whichever happens first. The commit deadline is only a backstop
	// against an entry waiting forever if the registry never reaches N.
	EveryNBatches
	// MaxAge fires at the batch's own commit deadline (receipt time
	// plus the stream's configured maximum batch age).
	MaxAge
	// EveryNSeconds fires N seconds after insertion, capped by the
	// batch's own commit deadline, whichever is sooner.
	EveryNSeconds
)

// CommitStrategy is a small sum type selecting when the commit
// coordinator should flush a given key's pending cursor. Construct one
// with the package-level helpers: NewAllBatchesStrategy,
// NewEveryNBatchesStrategy, NewMaxAgeStrategy, NewEveryNSecondsStrategy.
type CommitStrategy struct {
	kind CommitStrategyKind
	n    int
}

// NewAllBatchesStrategy commits as soon as possible after every ack.
func NewAllBatchesStrategy() CommitStrategy {
	return CommitStrategy{kind: AllBatches}
}

// NewEveryNBatchesStrategy accumulates entries and triggers an early
// flush once the registry holds at least n distinct keys; an entry
// still falls due at its own commit deadline if the registry never
// reaches n. n must be >= 1.
func NewEveryNBatchesStrategy(n int) CommitStrategy {
	if n < 1 {
		n = 1
	}
	return CommitStrategy{kind: EveryNBatches, n: n}
}

// NewMaxAgeStrategy commits no later than each batch's own commit
// deadline (receipt time plus the stream's maximum batch age).
func NewMaxAgeStrategy() CommitStrategy {
	return CommitStrategy{kind: MaxAge}
}

// NewEveryNSecondsStrategy commits n seconds after a key is first
// seen, or at the batch's own commit deadline, whichever is sooner. n
// must be >= 1.
func NewEveryNSecondsStrategy(n int) CommitStrategy {
	if n < 1 {
		n = 1
	}
	return CommitStrategy{kind: EveryNSeconds, n: n}
}

// Kind reports which strategy this value implements.
func (s CommitStrategy) Kind() CommitStrategyKind { return s.kind }

// fireAt computes the fire-at deadline for a freshly inserted entry
// wrapping batch.
func (s CommitStrategy) fireAt(now time.Time, batch Batch) time.Time {
	switch s.kind {
	case MaxAge, EveryNBatches:
		// EveryNBatches must not become due on the ordinary poll tick
		// the moment it's inserted: it is only meant to fire early via
		// earlyFlushThreshold, or as a last resort once the batch's own
		// commit deadline arrives.
		return batch.CommitDeadline
	case EveryNSeconds:
		byStrategy := now.Add(time.Duration(s.n) * time.Second)
		if byStrategy.After(batch.CommitDeadline) {
			return batch.CommitDeadline
		}
		return byStrategy
	default: // AllBatches
		return now
	}
}

// earlyFlushThreshold returns the registry-size threshold at which an
// early, out-of-band flush should happen, and whether this strategy
// defines one at all. Only EveryNBatches does.
func (s CommitStrategy) earlyFlushThreshold() (n int, ok bool) {
	if s.kind == EveryNBatches {
		return s.n, true
	}
	return 0, false
}
