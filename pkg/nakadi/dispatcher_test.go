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

type recordingFactory struct {
	mu      sync.Mutex
	seen    map[string][]string
	verdict func(eventType, partition string, events []byte) nakadi.HandlerResult
}

func newRecordingFactory(verdict func(eventType, partition string, events []byte) nakadi.HandlerResult) *recordingFactory {
	return &recordingFactory{seen: make(map[string][]string), verdict: verdict}
}

func (f *recordingFactory) NewHandler(eventType, partition string) nakadi.Handler {
	key := eventType + "/" + partition
	return nakadi.HandlerFunc(func(batch nakadi.Batch, events []byte) nakadi.HandlerResult {
		f.mu.Lock()
		f.seen[key] = append(f.seen[key], string(batch.Line.Cursor()))
		f.mu.Unlock()
		if f.verdict != nil {
			return f.verdict(eventType, partition, events)
		}
		return nakadi.HandlerContinue
	})
}

func (f *recordingFactory) cursorsFor(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.seen[key]))
	copy(out, f.seen[key])
	return out
}

func TestDispatcherPreservesPerPartitionOrder(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	committer := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, nil)
	defer committer.Stop()

	factory := newRecordingFactory(nil)
	d := nakadi.NewDispatcher(factory, committer, nil, nil, 8, nil)
	defer d.Stop()

	for _, cursor := range []string{"c1", "c2", "c3"} {
		require.NoError(t, d.Process(batchFor(t, "order.created", "0", cursor)))
	}

	assert.Eventually(t, func() bool {
		return len(factory.cursorsFor("order.created/0")) == 3
	}, time.Second, 5*time.Millisecond)

	seen := factory.cursorsFor("order.created/0")
	for i, cursor := range []string{"c1", "c2", "c3"} {
		assert.Contains(t, seen[i], `"offset":"`+cursor+`"`)
	}
}

func TestDispatcherHandlerAbortTriggersCallback(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	committer := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, nil)
	defer committer.Stop()

	factory := newRecordingFactory(func(string, string, []byte) nakadi.HandlerResult {
		return nakadi.HandlerAbort
	})

	var aborted sync.WaitGroup
	aborted.Add(1)
	var once sync.Once
	d := nakadi.NewDispatcher(factory, committer, nil, nil, 8, func() {
		once.Do(aborted.Done)
	})
	defer d.Stop()

	require.NoError(t, d.Process(batchFor(t, "order.created", "0", "c1")))

	done := make(chan struct{})
	go func() { aborted.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onAbort was never called")
	}
}

func TestDispatcherStopIsIdempotentAndDrains(t *testing.T) {
	client := nakaditest.NewClient("sub-1")
	committer := nakadi.StartCommitter(client, nakadi.NewAllBatchesStrategy(), "stream-1", nil, nil, 5*time.Millisecond, nil)
	defer committer.Stop()

	factory := newRecordingFactory(nil)
	d := nakadi.NewDispatcher(factory, committer, nil, nil, 8, nil)

	require.NoError(t, d.Process(batchFor(t, "order.created", "0", "c1")))

	d.Stop()
	d.Stop()
	assert.True(t, d.AwaitStopped(time.Second))
	assert.Len(t, factory.cursorsFor("order.created/0"), 1)

	assert.Error(t, d.Process(batchFor(t, "order.created", "0", "c2")))
}
