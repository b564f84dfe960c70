package relay

import (
	"context"
	"testing"
	"time"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_FIFOAndClose(t *testing.T) {
	r := New("t1", 8)
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, core.NewPartialResult("t1", "c1", "a")))
	require.NoError(t, r.Publish(ctx, core.NewPartialResult("t1", "c1", "b")))
	require.NoError(t, r.Publish(ctx, core.NewStatusUpdate("t1", "c1", core.TaskStateCompleted, true)))
	assert.True(t, r.Closed())

	events, err := Collect(ctx, r.Events())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Fragment)
	assert.Equal(t, "b", events[1].Fragment)
	assert.True(t, events[2].IsTerminal())
}

func TestRelay_PublishAfterTerminal(t *testing.T) {
	r := New("t1", 4)
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, core.NewStatusUpdate("t1", "c1", core.TaskStateFailed, true)))

	err := r.Publish(ctx, core.NewPartialResult("t1", "c1", "late"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRelayClosed)

	err = r.Publish(ctx, core.NewStatusUpdate("t1", "c1", core.TaskStateCompleted, true))
	assert.ErrorIs(t, err, core.ErrRelayClosed)
}

func TestRelay_NonFinalStatusKeepsOpen(t *testing.T) {
	r := New("t1", 4)
	require.NoError(t, r.Publish(context.Background(), core.NewStatusUpdate("t1", "c1", core.TaskStateWorking, false)))
	assert.False(t, r.Closed())
}

func TestRelay_Backpressure(t *testing.T) {
	r := New("t1", 1)
	require.NoError(t, r.Publish(context.Background(), core.NewPartialResult("t1", "c1", "a")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Publish(ctx, core.NewPartialResult("t1", "c1", "b"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, r.Closed())
}

func TestRelay_BackpressureReleasedByConsumer(t *testing.T) {
	r := New("t1", 1)
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, core.NewPartialResult("t1", "c1", "a")))

	done := make(chan error, 1)
	go func() { done <- r.Publish(ctx, core.NewPartialResult("t1", "c1", "b")) }()

	first := <-r.Events()
	assert.Equal(t, "a", first.Fragment)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish did not unblock after consumer read")
	}

	second := <-r.Events()
	assert.Equal(t, "b", second.Fragment)
}

func TestRelay_CloseReleasesBlockedPublisher(t *testing.T) {
	r := New("t1", 1)
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, core.NewPartialResult("t1", "c1", "a")))

	done := make(chan error, 1)
	go func() { done <- r.Publish(ctx, core.NewPartialResult("t1", "c1", "b")) }()

	// Give the publisher time to block on the full buffer.
	time.Sleep(20 * time.Millisecond)

	closedCh := make(chan bool, 1)
	go func() { closedCh <- r.Closed() }()

	select {
	case closed := <-closedCh:
		assert.False(t, closed)
	case <-time.After(time.Second):
		t.Fatal("Closed blocked behind a waiting publisher")
	}

	r.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, core.ErrRelayClosed)
	case <-time.After(time.Second):
		t.Fatal("publish did not unblock after Close")
	}

	events, err := Collect(ctx, r.Events())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Fragment)
	assert.True(t, r.Closed())
}

func TestRelay_CloseIsIdempotent(t *testing.T) {
	r := New("t1", 0)
	r.Close()
	r.Close()

	_, ok := <-r.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, r.Publish(context.Background(), core.NewPartialResult("t1", "c1", "x")), core.ErrRelayClosed)
}

func TestCollect_ContextDone(t *testing.T) {
	r := New("t1", 2)
	require.NoError(t, r.Publish(context.Background(), core.NewPartialResult("t1", "c1", "a")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	events, err := Collect(ctx, r.Events())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, events, 1)
}
