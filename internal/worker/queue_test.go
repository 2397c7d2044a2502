package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func fastOptions() Options {
	return Options{Workers: 2, Buffer: 4, MaxAttempts: 3, Backoff: time.Millisecond, TaskTimeout: time.Second}
}

func TestQueueRunsTasks(t *testing.T) {
	q := NewQueue(fastOptions(), nil)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(Task{Name: "count", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}
	q.Close()

	assert.Equal(t, int32(10), ran.Load())
}

func TestQueueRetries(t *testing.T) {
	q := NewQueue(fastOptions(), nil)

	var attempts atomic.Int32
	require.NoError(t, q.Submit(Task{Name: "flaky", Run: func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}}))
	q.Close()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueGivesUp(t *testing.T) {
	q := NewQueue(fastOptions(), nil)

	var attempts atomic.Int32
	require.NoError(t, q.Submit(Task{Name: "broken", Run: func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("permanent")
	}}))
	q.Close()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueRecoversPanics(t *testing.T) {
	opts := fastOptions()
	opts.MaxAttempts = 1
	q := NewQueue(opts, nil)

	var after atomic.Bool
	require.NoError(t, q.Submit(Task{Name: "panics", Run: func(ctx context.Context) error {
		panic("boom")
	}}))
	require.NoError(t, q.Submit(Task{Name: "after", Run: func(ctx context.Context) error {
		after.Store(true)
		return nil
	}}))
	q.Close()

	assert.True(t, after.Load())
}

func TestSubmitAfterClose(t *testing.T) {
	q := NewQueue(fastOptions(), nil)
	q.Close()
	q.Close()

	err := q.Submit(Task{Name: "late", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
