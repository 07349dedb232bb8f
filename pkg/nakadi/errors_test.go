package nakadi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectErrorPermanentVsTemporary(t *testing.T) {
	cause := errors.New("boom")

	permanent := NewPermanentConnectError(cause)
	assert.True(t, permanent.Permanent())
	assert.ErrorIs(t, permanent, cause)

	temporary := NewTemporaryConnectError(cause)
	assert.False(t, temporary.Permanent())
}

func TestBudgetExhaustedErrorIsPermanent(t *testing.T) {
	err := budgetExhaustedError(7, FlowId("f1"))
	assert.True(t, err.Permanent())
	assert.Equal(t, 7, err.Attempt())
	assert.Equal(t, FlowId("f1"), err.FlowId())
}

func TestCommitErrorUnwraps(t *testing.T) {
	cause := errors.New("commit rejected")
	err := NewCommitError("stream-1", "flow-1", cause)
	assert.ErrorIs(t, err, cause)
}
