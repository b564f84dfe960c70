package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
	"github.com/gautammanak1/taskmesh/relay"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// ConsolidateOutput re-emits the whole accumulated output as one
	// final_result partial right before the terminal events.
	ConsolidateOutput bool
	// MaxOutputBytes caps the accumulated output per task (0 = unlimited).
	MaxOutputBytes int
	// Logging services.
	Logger logging.Logger
}

// Runner drives tasks through their lifecycle. Public methods are safe for
// concurrent use; each task is driven by its own goroutine and shares nothing
// with other tasks besides the active run table.
type Runner struct {
	consolidate    bool
	maxOutputBytes int
	logger         logging.Logger

	activeRuns map[string]context.CancelCauseFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		consolidate:    opts.ConsolidateOutput,
		maxOutputBytes: opts.MaxOutputBytes,
		logger:         logging.OrNoOp(opts.Logger),
		activeRuns:     make(map[string]context.CancelCauseFunc),
	}
}

// Run drives task to a terminal state and returns once the terminal status
// event has been handed to rl. Per-task failures are reported on the relay,
// not returned; the returned error only signals that the relay could not
// accept events (ctx ended while the consumer was not reading).
func (r *Runner) Run(ctx context.Context, task *core.Task, exec core.Executor, rl *relay.Relay) error {
	done, err := r.Start(ctx, task, exec, rl)
	if err != nil {
		return err
	}

	return <-done
}

// Start registers task for cancellation and drives it asynchronously. The
// returned channel yields Run's result once the task is terminal. Registration
// happens before Start returns, so a Cancel issued right after is never lost.
func (r *Runner) Start(ctx context.Context, task *core.Task, exec core.Executor, rl *relay.Relay) (<-chan error, error) {
	runCtx, cancel := context.WithCancelCause(ctx)

	r.mu.Lock()
	if _, exists := r.activeRuns[task.ID]; exists {
		r.mu.Unlock()
		cancel(nil)
		return nil, fmt.Errorf("task %s already running", task.ID)
	}
	r.activeRuns[task.ID] = cancel
	r.mu.Unlock()

	done := make(chan error, 1)

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.activeRuns, task.ID)
			r.mu.Unlock()
			cancel(nil)
			close(done)
		}()

		done <- r.drive(ctx, runCtx, task, exec, rl)
	}()

	return done, nil
}

// Cancel requests cancellation of an in-flight task. It reports whether a run
// was found; cancelling an unknown or already finished task is a no-op.
func (r *Runner) Cancel(taskID string) bool {
	return r.CancelCause(taskID, core.ErrTaskCanceled)
}

// CancelCause is Cancel with an explicit cause, surfaced as the message of
// the terminal canceled status (e.g. a deadline).
func (r *Runner) CancelCause(taskID string, cause error) bool {
	r.mu.RLock()
	cancel, exists := r.activeRuns[taskID]
	r.mu.RUnlock()

	if !exists {
		r.logger.Debug("runner.cancel.ignored task_id=%s", taskID)
		return false
	}

	cancel(cause)

	return true
}

// Active returns the number of tasks currently being driven.
func (r *Runner) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.activeRuns)
}

// Reject fails a submitted task without running an executor: an error notice
// carrying reason, then the final failed status. Used when a task cannot be
// started at all (empty query, no executor).
func (r *Runner) Reject(ctx context.Context, task *core.Task, rl *relay.Relay, reason string) error {
	return r.finish(ctx, task, rl, r.taskLogger(task), time.Now(), core.TaskStateFailed, reason, errors.New(reason))
}

// drive owns the task state for the duration of the run. ctx is the caller's
// context and is used for publishing; runCtx additionally ends on Cancel.
func (r *Runner) drive(ctx, runCtx context.Context, task *core.Task, exec core.Executor, rl *relay.Relay) error {
	start := time.Now()
	logger := r.taskLogger(task)

	if runCtx.Err() != nil {
		return r.finishCanceled(ctx, runCtx, task, exec, rl, logger, start)
	}

	if err := task.Transition(core.TaskStateWorking); err != nil {
		return err
	}

	fragments, errs := exec.StreamExecute(runCtx, task.Text)
	limiter := core.NewOutputLimiter(r.maxOutputBytes)

	for {
		select {
		case <-runCtx.Done():
			if settled, res := r.settle(ctx, task, rl, limiter, fragments, errs); settled {
				return r.conclude(ctx, runCtx, task, exec, rl, logger, start, res)
			}
			return r.finishCanceled(ctx, runCtx, task, exec, rl, logger, start)

		case frag, ok := <-fragments:
			if !ok {
				return r.conclude(ctx, runCtx, task, exec, rl, logger, start, pendingError(task, errs))
			}
			if err := r.accept(ctx, task, rl, limiter, frag); err != nil {
				return r.conclude(ctx, runCtx, task, exec, rl, logger, start, err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			// Fragments sent before the error are already buffered.
			_, _ = r.settle(ctx, task, rl, limiter, fragments, nil)
			return r.conclude(ctx, runCtx, task, exec, rl, logger, start, &core.ExecutorStreamError{Specialist: task.Specialist.Name, Err: err})
		}
	}
}

// settle checks, without blocking, whether the executor finished before the
// cancellation was observed. Buffered fragments are relayed on the way. A
// failure already signaled on errs settles the run as well. The returned
// error is nil for a clean completion.
func (r *Runner) settle(
	ctx context.Context,
	task *core.Task,
	rl *relay.Relay,
	limiter *core.OutputLimiter,
	fragments <-chan string,
	errs <-chan error,
) (bool, error) {
	for {
		select {
		case frag, ok := <-fragments:
			if !ok {
				return true, pendingError(task, errs)
			}
			if err := r.accept(ctx, task, rl, limiter, frag); err != nil {
				return true, err
			}
		default:
			if err := pendingError(task, errs); err != nil {
				return true, err
			}
			return false, nil
		}
	}
}

// pendingError reads the executor error that must precede the close of the
// fragments channel. A missing or nil error means success.
func pendingError(task *core.Task, errs <-chan error) error {
	if errs == nil {
		return nil
	}

	select {
	case err, ok := <-errs:
		if ok && err != nil {
			return &core.ExecutorStreamError{Specialist: task.Specialist.Name, Err: err}
		}
	default:
	}

	return nil
}

// accept records and relays one fragment.
func (r *Runner) accept(ctx context.Context, task *core.Task, rl *relay.Relay, limiter *core.OutputLimiter, frag string) error {
	if err := limiter.Add(len(frag)); err != nil {
		return err
	}

	if err := task.Append(frag); err != nil {
		return err
	}

	if err := rl.Publish(ctx, core.NewPartialResult(task.ID, task.ContextID, frag)); err != nil {
		return &publishError{err: err}
	}

	return nil
}

// publishError marks a relay failure, which is not a task failure.
type publishError struct{ err error }

func (e *publishError) Error() string { return fmt.Sprintf("publish event: %v", e.err) }
func (e *publishError) Unwrap() error { return e.err }

// conclude maps the result of a finished stream to a terminal state. A stream
// that ended with a context error after the run was cancelled was interrupted,
// not failed.
func (r *Runner) conclude(
	ctx context.Context,
	runCtx context.Context,
	task *core.Task,
	exec core.Executor,
	rl *relay.Relay,
	logger logging.Logger,
	start time.Time,
	res error,
) error {
	var pe *publishError
	if res != nil && !errors.As(res, &pe) && runCtx.Err() != nil && interrupted(runCtx, res) {
		return r.finishCanceled(ctx, runCtx, task, exec, rl, logger, start)
	}

	return r.finishSettled(ctx, task, exec, rl, logger, start, res)
}

func interrupted(runCtx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	cause := context.Cause(runCtx)

	return cause != nil && errors.Is(err, cause)
}

func (r *Runner) finishSettled(
	ctx context.Context,
	task *core.Task,
	exec core.Executor,
	rl *relay.Relay,
	logger logging.Logger,
	start time.Time,
	res error,
) error {
	var pe *publishError
	if errors.As(res, &pe) {
		go exec.RequestCancel()
		_ = task.Transition(core.TaskStateCanceled)
		rl.Close()
		r.logOutcome(logger, task, start, pe)
		return pe
	}

	if res == nil {
		return r.finish(ctx, task, rl, logger, start, core.TaskStateCompleted, "", nil)
	}

	if errors.Is(res, core.ErrOutputLimitExceeded) {
		go exec.RequestCancel()
	}

	var se *core.ExecutorStreamError
	reason := res.Error()
	if errors.As(res, &se) {
		reason = se.Reason()
	}

	return r.finish(ctx, task, rl, logger, start, core.TaskStateFailed, reason, res)
}

func (r *Runner) finishCanceled(
	ctx context.Context,
	runCtx context.Context,
	task *core.Task,
	exec core.Executor,
	rl *relay.Relay,
	logger logging.Logger,
	start time.Time,
) error {
	// Never wait for the executor to acknowledge.
	go exec.RequestCancel()

	reason := core.ErrTaskCanceled.Error()
	if cause := context.Cause(runCtx); cause != nil {
		reason = cause.Error()
	}

	return r.finish(ctx, task, rl, logger, start, core.TaskStateCanceled, reason, nil)
}

// finish performs the single terminal transition and publishes the closing
// events: optional consolidated output, error notice for failures, then the
// final status.
func (r *Runner) finish(
	ctx context.Context,
	task *core.Task,
	rl *relay.Relay,
	logger logging.Logger,
	start time.Time,
	state core.TaskState,
	reason string,
	cause error,
) error {
	if err := task.Transition(state); err != nil {
		logger.Warn("runner.finish.rejected task_id=%s state=%s: %v", task.ID, state, err)
		return err
	}

	defer r.logOutcome(logger, task, start, cause)

	if r.consolidate && len(task.Output()) > 0 {
		if err := r.publish(ctx, rl, core.NewConsolidatedResult(task.ID, task.ContextID, task.OutputText())); err != nil {
			return err
		}
	}

	if state == core.TaskStateFailed {
		if err := r.publish(ctx, rl, core.NewErrorNotice(task.ID, task.ContextID, reason)); err != nil {
			return err
		}
	}

	status := core.NewStatusUpdate(task.ID, task.ContextID, state, true)
	if state == core.TaskStateCanceled {
		status.Message = reason
	}

	return r.publish(ctx, rl, status)
}

func (r *Runner) publish(ctx context.Context, rl *relay.Relay, ev core.Event) error {
	if err := rl.Publish(ctx, ev); err != nil {
		rl.Close()
		return fmt.Errorf("publish %s event: %w", ev.Kind, err)
	}

	return nil
}

func (r *Runner) taskLogger(task *core.Task) logging.Logger {
	if tl, ok := r.logger.(*logging.TaskLogger); ok {
		return tl.WithComponent("runner").WithTask(task.ID, task.ContextID)
	}

	return r.logger
}

func (r *Runner) logOutcome(logger logging.Logger, task *core.Task, start time.Time, cause error) {
	if tl, ok := logger.(*logging.TaskLogger); ok {
		tl.LogTaskOutcome(task.Specialist.Name, string(task.State()), len(task.Output()), time.Since(start), cause)
		return
	}

	logger.Debug("runner.task.finished task_id=%s state=%s fragments=%d", task.ID, task.State(), len(task.Output()))
}
