package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_CompleteOnce(t *testing.T) {
	f := newFuture()
	assert.False(t, f.IsDone())

	require.True(t, f.start())
	assert.False(t, f.start(), "a running future cannot start again")

	f.complete("first", nil)
	f.complete("second", errors.New("ignored"))

	value, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", value)
	assert.True(t, f.IsDone())
	assert.False(t, f.IsCancelled())
}

func TestFuture_Cancel(t *testing.T) {
	f := newFuture()
	assert.True(t, f.Cancel())
	assert.False(t, f.Cancel())
	assert.False(t, f.start(), "a cancelled future must not run")

	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, f.IsCancelled())
}

func TestFuture_CancelAfterStart(t *testing.T) {
	f := newFuture()
	require.True(t, f.start())
	assert.False(t, f.Cancel())
	assert.False(t, f.IsCancelled())
}

func TestFuture_GetRespectsContext(t *testing.T) {
	f := newFuture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = f.GetTimeout(time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_DoneChannel(t *testing.T) {
	f := newFuture()
	go func() {
		if f.start() {
			f.complete(nil, nil)
		}
	}()

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("future never completed")
	}
}

func TestListenableFuture_ListenersBeforeAndAfterCompletion(t *testing.T) {
	lf := &ListenableFuture{Future: newFuture()}

	var calls atomic.Int32
	lf.AddListener(func(*Future) { calls.Add(1) })
	lf.AddListener(nil)

	var got interface{}
	lf.AddCallback(func(v interface{}) { got = v }, nil)

	require.True(t, lf.start())
	lf.complete("done", nil)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "done", got)

	// registered after completion: runs immediately on the caller
	lf.AddListener(func(*Future) { calls.Add(1) })
	assert.Equal(t, int32(2), calls.Load())
}

func TestListenableFuture_FailureCallback(t *testing.T) {
	lf := &ListenableFuture{Future: newFuture()}

	var failure error
	successCalled := false
	lf.AddCallback(func(interface{}) { successCalled = true }, func(err error) { failure = err })

	lf.abandon(ErrDiscarded)
	assert.ErrorIs(t, failure, ErrDiscarded)
	assert.False(t, successCalled)

	// nil callbacks are tolerated
	lf.AddCallback(nil, nil)
}
