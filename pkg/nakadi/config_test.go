package nakadi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCfg(t *testing.T) {
	c := defaultCfg()
	assert.Equal(t, AllBatches, c.strategy.Kind())
	assert.Equal(t, defaultConnectMaxDuration, c.connectMaxDuration)
	assert.Equal(t, defaultMaxBatchAge, c.maxBatchAge)
	assert.Equal(t, defaultCommitPollInterval, c.commitPollInterval)
	assert.Equal(t, defaultWorkerQueueSize, c.workerQueueSize)
}

func TestOptsApplyInOrder(t *testing.T) {
	c := defaultCfg()
	WithMaxBatchAge(10 * time.Second).apply(&c)
	WithMaxBatchAge(20 * time.Second).apply(&c)
	assert.Equal(t, 20*time.Second, c.maxBatchAge)
}

func TestWithWorkerQueueSizeIgnoresNonPositive(t *testing.T) {
	c := defaultCfg()
	WithWorkerQueueSize(0).apply(&c)
	assert.Equal(t, defaultWorkerQueueSize, c.workerQueueSize)

	WithWorkerQueueSize(16).apply(&c)
	assert.Equal(t, 16, c.workerQueueSize)
}
