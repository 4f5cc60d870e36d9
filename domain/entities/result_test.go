package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	o := Success(int64(7))

	assert.Equal(t, OutcomeSuccess, o.Status)
	assert.Equal(t, int64(7), o.Value)
	assert.True(t, o.IsSuccess())
	assert.False(t, o.IsFailure())
}

func TestFailure(t *testing.T) {
	o := Failure(NewErrorDetail(ErrorTypeInvocation, "boom").WithCode("predict"))

	assert.Equal(t, OutcomeFailure, o.Status)
	require.NotNil(t, o.Error)
	assert.Equal(t, "predict", o.Error.Code)
	assert.False(t, o.IsSuccess())
	assert.True(t, o.IsFailure())
}

func TestOutcome_Reply(t *testing.T) {
	t.Run("success becomes result", func(t *testing.T) {
		msg := Success("ok").Reply(3)
		assert.Equal(t, MessageResult, msg.Kind)
		assert.Equal(t, uint64(3), msg.ID)
		assert.Equal(t, "ok", msg.Value)
		assert.True(t, msg.IsReply())
	})

	t.Run("failure becomes error", func(t *testing.T) {
		msg := Failure(NewErrorDetail(ErrorTypeLoad, "missing")).Reply(4)
		assert.Equal(t, MessageError, msg.Kind)
		assert.Equal(t, uint64(4), msg.ID)
		require.NotNil(t, msg.Error)
		assert.Equal(t, "load: missing", msg.Error.Error())
	})
}

func TestOutcome_WithTiming(t *testing.T) {
	start := time.Now()
	end := start.Add(100 * time.Millisecond)

	o := Success(nil).WithTiming(NewCallTiming(start, end))

	require.NotNil(t, o.Timing)
	assert.Equal(t, 100*time.Millisecond, o.Timing.Duration)
}
