// Package backoff implements the connect-retry delay schedule: a fixed
// vector of per-attempt delays, indexed by attempt number, that
// plateaus once the vector is exhausted. This mirrors the literal
// schedule used by the reference implementation rather than a generic
// exponential-backoff policy, because the schedule's shape (short
// ramp, 15s plateau, 30s beyond the vector) is part of the connect
// contract, not an incidental retry detail.
package backoff

import "time"

// schedule[N] is the millisecond delay used after the Nth connect
// attempt (1-indexed), so schedule[0] is never used. Attempts from
// len(schedule) on plateau at plateauMillis.
var schedule = []int64{
	10, 50, 100, 500, 1000, 1000, 1000,
	3000, 3000, 3000,
	5000, 5000, 5000,
	10_000, 10_000, 10_000,
	15_000, 15_000, 15_000,
}

const plateauMillis = 30_000

// Delay returns the delay to sleep after the given attempt number (the
// 1-indexed count of connect attempts made so far, including the one
// that just failed). The lookup is a direct index into the schedule by
// attempt, matching the reference implementation's
// CONNECT_RETRY_BACKOFF_MS.get(attempt) exactly, schedule[0] included
// (it is unreachable: attempt is never 0 when this is called).
func Delay(attempt int) time.Duration {
	if attempt >= 0 && attempt < len(schedule) {
		return time.Duration(schedule[attempt]) * time.Millisecond
	}
	return plateauMillis * time.Millisecond
}
