package nakadi_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakadi-go/nakadi/pkg/nakadi"
	"github.com/nakadi-go/nakadi/pkg/nakaditest"
)

func batchFor(t *testing.T, eventType, partition, cursor string) nakadi.Batch {
	t.Helper()
	raw := []byte(`{"cursor":{"partition":"` + partition + `","offset":"` + cursor + `","event_type":"` + eventType + `"}}`)
	line, err := nakadi.ParseBatchLine(raw)
	require.NoError(t, err)
	return nakadi.NewBatch(line, time.Now(), 30*time.Second)
}

func TestCommitterAllBatchesFlushesEachAck(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	c := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, nil)
	defer c.Stop()

	c.Commit(batchFor(t, "order.created", "0", "c1"))

	assert.Eventually(t, func() bool {
		return len(client.Commits()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCommitterFlushesAllOnStop(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	c := nakadi.StartCommitter(client, nakadi.NewMaxAgeStrategy(), "stream-1", nil, nil, 50*time.Millisecond, nil)

	c.Commit(batchFor(t, "order.created", "0", "c1"))
	c.Commit(batchFor(t, "order.created", "1", "c2"))

	c.Stop()
	require.True(t, c.AwaitStopped(time.Second))

	commits := client.Commits()
	require.Len(t, commits, 1)
	assert.Len(t, commits[0].Cursors, 2)
}

func TestCommitterEveryNBatchesFlushesEarly(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	// A long poll interval: if the flush happens, it must be the
	// synchronous early-flush path triggered by the fourth insert, not
	// the poll tick.
	c := nakadi.StartCommitter(client, nakadi.NewEveryNBatchesStrategy(4), "stream-1", nil, nil, time.Hour, nil)
	defer c.Stop()

	c.Commit(batchFor(t, "order.created", "0", "c1"))
	c.Commit(batchFor(t, "order.created", "1", "c2"))
	c.Commit(batchFor(t, "order.created", "2", "c3"))
	c.Commit(batchFor(t, "order.created", "3", "c4"))

	assert.Eventually(t, func() bool {
		commits := client.Commits()
		return len(commits) == 1 && len(commits[0].Cursors) == 4
	}, time.Second, 5*time.Millisecond)
}

func TestCommitterNotAllOffsetsIncreasedStillRemovesEntry(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	client.CommitResult = nakadi.NotAllOffsetsIncreased
	c := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, nil)

	c.Commit(batchFor(t, "order.created", "0", "c1"))

	assert.Eventually(t, func() bool { return len(client.Commits()) == 1 }, time.Second, 5*time.Millisecond)

	c.Stop()
	require.True(t, c.AwaitStopped(time.Second))
	// The entry was removed on the first (NotAllOffsetsIncreased) flush,
	// so shutdown's flush-all has nothing left to submit.
	assert.Len(t, client.Commits(), 1)
}

func TestCommitterCommitErrorInvokesOnFatal(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	client.CommitErr = assert.AnError

	fatalCh := make(chan struct{})
	var once sync.Once
	onFatal := func() { once.Do(func() { close(fatalCh) }) }

	c := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, onFatal)
	defer c.Stop()

	c.Commit(batchFor(t, "order.created", "0", "c1"))

	select {
	case <-fatalCh:
	case <-time.After(time.Second):
		t.Fatal("onFatal was not invoked after a commit error")
	}
	assert.False(t, c.Running())
}

func TestCommitterStopIsIdempotent(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	c := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, nil)

	c.Stop()
	c.Stop()
	assert.True(t, c.AwaitStopped(time.Second))
}
