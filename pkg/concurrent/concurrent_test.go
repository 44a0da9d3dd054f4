package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}

	out, err := Map(context.Background(), in, 4, func(_ context.Context, v int) (int, error) {
		return v * v, nil
	})

	require.NoError(t, err)
	require.Len(t, out, 100)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestMapRespectsWorkerLimit(t *testing.T) {
	var running, peak int32
	in := make([]int, 50)

	_, err := Map(context.Background(), in, 3, func(_ context.Context, _ int) (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&running, -1)
		return 0, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	out, err := Map(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestMapCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, []int{1, 2}, 2, func(_ context.Context, v int) (int, error) { return v, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForEach(t *testing.T) {
	var sum int64
	err := ForEach(context.Background(), []int64{1, 2, 3, 4}, 0, func(_ context.Context, v int64) error {
		atomic.AddInt64(&sum, v)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
}
