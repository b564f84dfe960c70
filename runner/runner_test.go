package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/internal/testutil"
	"github.com/gautammanak1/taskmesh/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(id string) *core.Task {
	return core.NewTask(id, "ctx-"+id, "do something", core.SpecialistDescriptor{Name: "worker"})
}

func collect(t *testing.T, rl *relay.Relay) []core.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, err := relay.Collect(ctx, rl.Events())
	require.NoError(t, err)
	return events
}

func TestRunner_CompletesInOrder(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 16)
	exec := testutil.NewScriptedExecutor("a", "b", "c")

	require.NoError(t, r.Run(context.Background(), task, exec, rl))

	events := collect(t, rl)
	assert.Equal(t, []core.EventKind{core.EventKindPartial, core.EventKindPartial, core.EventKindPartial, core.EventKindStatus}, testutil.Kinds(events))
	assert.Equal(t, []string{"a", "b", "c"}, testutil.Fragments(events))

	final, ok := testutil.Terminal(events)
	require.True(t, ok)
	assert.Equal(t, core.TaskStateCompleted, final.State)
	assert.Equal(t, core.TaskStateCompleted, task.State())
	assert.Equal(t, []string{"a", "b", "c"}, task.Output())
	assert.Equal(t, "do something", exec.Text())

	for _, ev := range events {
		assert.Equal(t, "t1", ev.TaskID)
		assert.Equal(t, "ctx-t1", ev.ContextID)
	}
}

func TestRunner_FailureAfterTwoFragments(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 16)
	exec := testutil.NewScriptedExecutor("a", "b").WithError(errors.New("model exploded"))

	require.NoError(t, r.Run(context.Background(), task, exec, rl))

	events := collect(t, rl)
	require.Len(t, events, 4)
	assert.Equal(t, []string{"a", "b"}, testutil.Fragments(events))
	assert.Equal(t, core.EventKindError, events[2].Kind)
	assert.Equal(t, "model exploded", events[2].Message)
	assert.True(t, events[3].IsTerminal())
	assert.Equal(t, core.TaskStateFailed, events[3].State)

	assert.Equal(t, core.TaskStateFailed, task.State())
	assert.Equal(t, []string{"a", "b"}, task.Output())
}

func TestRunner_FailureBeforeAnyFragment(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 4)

	require.NoError(t, r.Run(context.Background(), task, testutil.NewScriptedExecutor().WithError(errors.New("no key")), rl))

	events := collect(t, rl)
	assert.Equal(t, []core.EventKind{core.EventKindError, core.EventKindStatus}, testutil.Kinds(events))
	assert.Equal(t, "no key", events[0].Message)
}

func TestRunner_ConsolidatedOutput(t *testing.T) {
	r := New(func(o *Options) { o.ConsolidateOutput = true })

	task := newTask("t1")
	rl := relay.New(task.ID, 16)
	require.NoError(t, r.Run(context.Background(), task, testutil.NewScriptedExecutor("Hel", "lo"), rl))

	events := collect(t, rl)
	require.Len(t, events, 4)
	assert.Equal(t, core.ArtifactFinalResult, events[2].Artifact)
	assert.Equal(t, "Hello", events[2].Fragment)
	assert.Equal(t, core.TaskStateCompleted, events[3].State)

	failTask := newTask("t2")
	failRelay := relay.New(failTask.ID, 16)
	require.NoError(t, r.Run(context.Background(), failTask, testutil.NewScriptedExecutor("x").WithError(errors.New("boom")), failRelay))

	events = collect(t, failRelay)
	assert.Equal(t, []core.EventKind{core.EventKindPartial, core.EventKindPartial, core.EventKindError, core.EventKindStatus}, testutil.Kinds(events))
	assert.Equal(t, "x", events[1].Fragment)
}

func TestRunner_ConsolidationSkippedWithoutOutput(t *testing.T) {
	r := New(func(o *Options) { o.ConsolidateOutput = true })
	task := newTask("t1")
	rl := relay.New(task.ID, 4)

	require.NoError(t, r.Run(context.Background(), task, testutil.NewScriptedExecutor(), rl))
	assert.Equal(t, []core.EventKind{core.EventKindStatus}, testutil.Kinds(collect(t, rl)))
}

func TestRunner_CancelNonResponsiveWorker(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 16)
	exec := testutil.NewScriptedExecutor("a").Holding().IgnoringCancel()
	defer exec.Release()

	done, err := r.Start(context.Background(), task, exec, rl)
	require.NoError(t, err)

	first := <-rl.Events()
	assert.Equal(t, "a", first.Fragment)

	assert.True(t, r.Cancel(task.ID))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation blocked on a non-responsive worker")
	}

	events := collect(t, rl)
	require.Len(t, events, 1)
	assert.Equal(t, core.TaskStateCanceled, events[0].State)
	assert.True(t, events[0].Final)
	assert.Equal(t, core.ErrTaskCanceled.Error(), events[0].Message)
	assert.Equal(t, core.TaskStateCanceled, task.State())
	assert.Equal(t, []string{"a"}, task.Output())

	assert.Eventually(t, func() bool { return exec.Cancels() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRunner_CancelCauseIsReported(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 4)
	exec := testutil.NewScriptedExecutor().Holding()

	done, err := r.Start(context.Background(), task, exec, rl)
	require.NoError(t, err)
	<-exec.Started()

	assert.True(t, r.CancelCause(task.ID, errors.New("deadline of 1s exceeded")))
	require.NoError(t, <-done)

	events := collect(t, rl)
	require.Len(t, events, 1)
	assert.Equal(t, "deadline of 1s exceeded", events[0].Message)
}

func TestRunner_CancelAfterCompletionIsNoOp(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 8)

	require.NoError(t, r.Run(context.Background(), task, testutil.NewScriptedExecutor("a"), rl))

	assert.False(t, r.Cancel(task.ID))
	assert.Equal(t, core.TaskStateCompleted, task.State())
	assert.Equal(t, 0, r.Active())
}

// finishedThenCanceled completes its stream and cancels the run before the
// runner observes either, so both select cases are ready at once.
type finishedThenCanceled struct {
	cancel func()
	calls  int
}

func (f *finishedThenCanceled) StreamExecute(context.Context, string) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	out <- "done"
	close(out)
	close(errCh)
	f.cancel()
	return out, errCh
}

func (f *finishedThenCanceled) RequestCancel() { f.calls++ }

func TestRunner_CompletionWinsCancellationRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := New()
		task := newTask("t1")
		rl := relay.New(task.ID, 8)
		exec := &finishedThenCanceled{}
		exec.cancel = func() { r.Cancel(task.ID) }

		require.NoError(t, r.Run(context.Background(), task, exec, rl))

		events := collect(t, rl)
		final, ok := testutil.Terminal(events)
		require.True(t, ok)
		assert.Equal(t, core.TaskStateCompleted, final.State, "iteration %d", i)
		assert.Equal(t, []string{"done"}, testutil.Fragments(events))
	}
}

// failedThenCanceled signals a failure and cancels the run before closing its
// fragments, so the runner may observe the cancellation first.
type failedThenCanceled struct {
	cancel func()
}

func (f *failedThenCanceled) StreamExecute(context.Context, string) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)
	errCh <- errors.New("model exploded")
	f.cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(out)
		close(errCh)
	}()

	return out, errCh
}

func (f *failedThenCanceled) RequestCancel() {}

func TestRunner_FailureWinsCancellationRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := New()
		task := newTask("t1")
		rl := relay.New(task.ID, 8)
		exec := &failedThenCanceled{}
		exec.cancel = func() { r.Cancel(task.ID) }

		require.NoError(t, r.Run(context.Background(), task, exec, rl))

		events := collect(t, rl)
		final, ok := testutil.Terminal(events)
		require.True(t, ok)
		assert.Equal(t, core.TaskStateFailed, final.State, "iteration %d", i)
		require.Len(t, events, 2)
		assert.Equal(t, core.EventKindError, events[0].Kind)
		assert.Equal(t, "model exploded", events[0].Message)
	}
}

func TestRunner_CanceledBeforeStart(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := testutil.NewScriptedExecutor("never")
	err := r.Run(ctx, task, exec, rl)
	require.NoError(t, err)

	events := collect(t, rl)
	require.Len(t, events, 1)
	assert.Equal(t, core.TaskStateCanceled, events[0].State)
}

func TestRunner_OutputLimit(t *testing.T) {
	r := New(func(o *Options) { o.MaxOutputBytes = 3 })
	task := newTask("t1")
	rl := relay.New(task.ID, 8)
	exec := testutil.NewScriptedExecutor("ab", "cd", "ef").Holding()
	defer exec.Release()

	require.NoError(t, r.Run(context.Background(), task, exec, rl))

	events := collect(t, rl)
	assert.Equal(t, []string{"ab"}, testutil.Fragments(events))
	require.Len(t, events, 3)
	assert.Equal(t, core.EventKindError, events[1].Kind)
	assert.Contains(t, events[1].Message, "output limit exceeded")
	assert.Equal(t, core.TaskStateFailed, events[2].State)
	assert.Eventually(t, func() bool { return exec.Cancels() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRunner_RelayNotConsumed(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 1)
	exec := testutil.NewScriptedExecutor("a", "b", "c")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx, task, exec, rl)
	require.Error(t, err)
	assert.True(t, rl.Closed())
	assert.True(t, task.State().IsTerminal())
}

func TestRunner_DuplicateStart(t *testing.T) {
	r := New()
	task := newTask("t1")
	exec := testutil.NewScriptedExecutor().Holding()

	done, err := r.Start(context.Background(), task, exec, relay.New(task.ID, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Active())

	_, err = r.Start(context.Background(), newTask("t1"), testutil.NewScriptedExecutor(), relay.New(task.ID, 4))
	assert.Error(t, err)

	exec.Release()
	require.NoError(t, <-done)
	assert.Equal(t, 0, r.Active())
}

func TestRunner_ConcurrentTasksIndependent(t *testing.T) {
	r := New()

	type run struct {
		task *core.Task
		rl   *relay.Relay
		done <-chan error
	}

	var runs []run
	for _, id := range []string{"a", "b", "c", "d"} {
		task := newTask(id)
		rl := relay.New(task.ID, 8)
		done, err := r.Start(context.Background(), task, testutil.NewScriptedExecutor(id+"1", id+"2"), rl)
		require.NoError(t, err)
		runs = append(runs, run{task, rl, done})
	}

	for _, rn := range runs {
		require.NoError(t, <-rn.done)
		events := collect(t, rn.rl)
		assert.Equal(t, []string{rn.task.ID + "1", rn.task.ID + "2"}, testutil.Fragments(events))
	}
}

func TestRunner_Reject(t *testing.T) {
	r := New()
	task := newTask("t1")
	rl := relay.New(task.ID, 4)

	require.NoError(t, r.Reject(context.Background(), task, rl, "no query provided"))

	events := collect(t, rl)
	require.Len(t, events, 2)
	assert.Equal(t, core.EventKindError, events[0].Kind)
	assert.Equal(t, "no query provided", events[0].Message)
	assert.Equal(t, core.TaskStateFailed, events[1].State)
	assert.True(t, events[1].Final)
	assert.Equal(t, core.TaskStateFailed, task.State())

	assert.Error(t, r.Reject(context.Background(), task, relay.New(task.ID, 4), "again"))
}
