package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Shutdown()

	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	results, err := Map(context.Background(), pool, items, func(_ context.Context, index int, item int) (int, error) {
		return item * item, nil
	})
	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestMapReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Shutdown()

	boom := errors.New("boom")
	var calls atomic.Int32
	_, err := Map(context.Background(), pool, []string{"a", "b", "c"}, func(_ context.Context, _ int, item string) (string, error) {
		calls.Add(1)
		if item == "b" {
			return "", boom
		}
		return item, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, calls.Load(), int32(3))
}

func TestMapEmptyInput(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	results, err := Map(context.Background(), pool, nil, func(context.Context, int, int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()
	pool.Shutdown()

	err := pool.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestSubmitHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() {
		close(started)
		<-block
	}))
	<-started
	// Fill the buffer so the next submission has to wait.
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() {}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultWorkerCount(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()
	assert.Positive(t, pool.Workers())
}
