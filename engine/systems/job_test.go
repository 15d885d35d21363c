package systems

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

func TestNewJobSystemRejectsBadSizes(t *testing.T) {
	_, err := NewJobSystem(0, 4)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(2, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)

	var completed, failed, finished atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		require.NoError(t, js.Submit(metadata.JobTask{
			JobType:     metadata.JOB_TYPE_GENERAL,
			InputParams: i,
			OnStart: func(ctx context.Context, params interface{}) (interface{}, error) {
				if params.(int)%2 == 1 {
					return nil, errors.New("odd")
				}
				return params.(int) * 2, nil
			},
			OnComplete:           func(result interface{}) { completed.Add(1) },
			OnFailure:            func(err error) { failed.Add(1) },
			OnCompletionCallback: func() { finished.Add(1); wg.Done() },
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(10), completed.Load())
	assert.Equal(t, int32(10), failed.Load())
	assert.Equal(t, int32(20), finished.Load())
	require.NoError(t, js.Shutdown())
}

func TestJobSystemShutdownDrainsAndCloses(t *testing.T) {
	js, err := NewJobSystem(1, 16)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, js.Submit(metadata.JobTask{
			OnStart: func(ctx context.Context, params interface{}) (interface{}, error) {
				ran.Add(1)
				return nil, nil
			},
		}))
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(10), ran.Load())

	// idempotent
	require.NoError(t, js.Shutdown())

	err = js.Submit(metadata.JobTask{
		OnStart: func(ctx context.Context, params interface{}) (interface{}, error) { return nil, nil },
	})
	assert.ErrorIs(t, err, core.ErrQueueClosed)
}

func TestJobSystemRejectsMissingEntryPoint(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	defer js.Shutdown()

	assert.Error(t, js.Submit(metadata.JobTask{JobType: metadata.JOB_TYPE_IMPACT}))
}

func TestJobSystemDefaultsContext(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)

	got := make(chan context.Context, 1)
	require.NoError(t, js.Submit(metadata.JobTask{
		OnStart: func(ctx context.Context, params interface{}) (interface{}, error) {
			got <- ctx
			return nil, nil
		},
	}))
	require.NoError(t, js.Shutdown())
	assert.NotNil(t, <-got)
}
