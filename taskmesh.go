// Package taskmesh provides the composition root that turns a text request
// into a routed, streamed and cancellable task. Most applications interact
// with this package by:
//  1. Building a registry.Registry of specialist descriptors
//  2. Supplying a core.Resolver that yields one executor per task
//     (specialist.Directory, a2a.RemoteResolver, or a custom one)
//  3. Submitting requests asynchronously (Submit) or synchronously (SubmitSync)
//
// The coordinator delegates selection to router.Router and lifecycle to
// runner.Runner; every task gets its own relay.Relay as event stream.
package taskmesh

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
	"github.com/gautammanak1/taskmesh/registry"
	"github.com/gautammanak1/taskmesh/relay"
	"github.com/gautammanak1/taskmesh/router"
	"github.com/gautammanak1/taskmesh/runner"
)

// Reason reported for requests without text.
const emptyQueryReason = "no query provided"

var (
	// ErrTaskInFlight is returned when a request reuses the ID of a running task.
	ErrTaskInFlight = errors.New("task already in flight")
	// ErrTaskTimeout is the cancellation cause used when TaskTimeout elapses.
	ErrTaskTimeout = errors.New("task timed out")
)

// Options configures the Coordinator instance.
type Options struct {
	// EventBufferSize sets the per-task relay buffer. Larger buffers let a
	// fast executor run ahead of a slow consumer.
	EventBufferSize int

	// MaxConcurrentTasks limits the number of tasks that can execute
	// simultaneously; Submit waits for a free slot. Set to 0 for unlimited.
	MaxConcurrentTasks int

	// TaskTimeout cancels a task that has not finished in time (0 = none).
	TaskTimeout time.Duration

	// ConsolidateOutput re-emits the full output as a final_result artifact
	// before the terminal status.
	ConsolidateOutput bool

	// MaxOutputBytes caps the accumulated output per task (0 = unlimited).
	MaxOutputBytes int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Request is one unit of work submitted to the coordinator. Empty IDs are
// generated.
type Request struct {
	Text      string `json:"text"`
	TaskID    string `json:"task_id,omitempty"`
	ContextID string `json:"context_id,omitempty"`
}

// Coordinator routes requests to specialists and drives their tasks.
type Coordinator struct {
	opts     Options
	registry *registry.Registry
	resolver core.Resolver
	router   *router.Router
	runner   *runner.Runner
	logger   logging.Logger

	slots chan struct{}

	mu    sync.RWMutex
	tasks map[string]*core.Task
}

// New creates a Coordinator. An empty registry is a startup error.
func New(reg *registry.Registry, resolver core.Resolver, optFns ...func(o *Options)) (*Coordinator, error) {
	opts := Options{
		EventBufferSize:    relay.DefaultBufferSize,
		MaxConcurrentTasks: 10,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if reg == nil || reg.Len() == 0 {
		return nil, &core.NoSpecialistAvailableError{}
	}
	if resolver == nil {
		return nil, errors.New("taskmesh: resolver is required")
	}

	logger := logging.OrNoOp(opts.Logger)
	if tl, ok := logger.(*logging.TaskLogger); ok {
		logger = tl.WithComponent("coordinator")
	}

	c := &Coordinator{
		opts:     opts,
		registry: reg,
		resolver: resolver,
		logger:   logger,
		router:   router.New(func(o *router.Options) { o.Logger = logger }),
		runner: runner.New(func(o *runner.Options) {
			o.ConsolidateOutput = opts.ConsolidateOutput
			o.MaxOutputBytes = opts.MaxOutputBytes
			o.Logger = opts.Logger
		}),
		tasks: make(map[string]*core.Task),
	}

	if opts.MaxConcurrentTasks > 0 {
		c.slots = make(chan struct{}, opts.MaxConcurrentTasks)
	}

	return c, nil
}

// Submit routes req, starts its task and returns the task together with its
// event stream. The stream ends after the terminal status event. ctx bounds
// the wait for a concurrency slot and the lifetime of the task: once it ends
// the task is canceled.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*core.Task, <-chan core.Event, error) {
	if req.TaskID == "" {
		req.TaskID = core.NewID()
	}
	if req.ContextID == "" {
		req.ContextID = core.NewID()
	}

	decision, err := c.router.Route(req.Text, c.registry)
	if err != nil {
		return nil, nil, err
	}

	task := core.NewTask(req.TaskID, req.ContextID, req.Text, decision.Specialist)
	if err := c.track(task); err != nil {
		return nil, nil, err
	}

	if err := c.acquire(ctx); err != nil {
		c.untrack(task.ID)
		return nil, nil, err
	}

	c.logRoute(task, decision)

	rl := relay.New(task.ID, c.opts.EventBufferSize)
	release := func() {
		c.untrack(task.ID)
		c.releaseSlot()
	}

	if strings.TrimSpace(req.Text) == "" {
		go c.reject(ctx, task, rl, emptyQueryReason, release)
		return task, rl.Events(), nil
	}

	exec, err := c.resolver.Resolve(decision.Specialist)
	if err != nil {
		go c.reject(ctx, task, rl, err.Error(), release)
		return task, rl.Events(), nil
	}

	done, err := c.runner.Start(ctx, task, exec, rl)
	if err != nil {
		release()
		return nil, nil, err
	}

	var timer *time.Timer
	if timeout := c.opts.TaskTimeout; timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			c.runner.CancelCause(task.ID, fmt.Errorf("%w after %s", ErrTaskTimeout, timeout))
		})
	}

	go func() {
		defer release()
		if err := <-done; err != nil {
			c.logger.Warn("coordinator.task.undelivered task_id=%s: %v", task.ID, err)
		}
		if timer != nil {
			timer.Stop()
		}
	}()

	return task, rl.Events(), nil
}

// SubmitSync is a synchronous helper that drains the event stream and returns
// the finished task with every event it produced.
func (c *Coordinator) SubmitSync(ctx context.Context, req Request) (*core.Task, []core.Event, error) {
	task, eventsCh, err := c.Submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	events, err := relay.Collect(ctx, eventsCh)

	return task, events, err
}

// Cancel requests cancellation of an in-flight task. It reports false when the
// task is unknown or already finished.
func (c *Coordinator) Cancel(taskID string) bool {
	return c.runner.Cancel(taskID)
}

// Task returns an in-flight task by ID.
func (c *Coordinator) Task(taskID string) (*core.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tasks[taskID]

	return t, ok
}

// Active returns the number of in-flight tasks.
func (c *Coordinator) Active() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.tasks)
}

// Route reports which specialist would handle text without starting a task.
func (c *Coordinator) Route(text string) (router.Decision, error) {
	return c.router.Route(text, c.registry)
}

// Explain scores every registered specialist against text.
func (c *Coordinator) Explain(text string) []router.Score {
	return c.router.Explain(text, c.registry)
}

// Specialists iterates the registered specialists in registration order.
func (c *Coordinator) Specialists() iter.Seq[core.SpecialistDescriptor] {
	return c.registry.All()
}

func (c *Coordinator) reject(ctx context.Context, task *core.Task, rl *relay.Relay, reason string, release func()) {
	defer release()
	if err := c.runner.Reject(ctx, task, rl, reason); err != nil {
		c.logger.Warn("coordinator.task.undelivered task_id=%s: %v", task.ID, err)
	}
}

func (c *Coordinator) track(task *core.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", ErrTaskInFlight, task.ID)
	}
	c.tasks[task.ID] = task

	return nil
}

func (c *Coordinator) untrack(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, taskID)
}

func (c *Coordinator) acquire(ctx context.Context) error {
	if c.slots == nil {
		return nil
	}

	select {
	case c.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) releaseSlot() {
	if c.slots != nil {
		<-c.slots
	}
}

func (c *Coordinator) logRoute(task *core.Task, d router.Decision) {
	if tl, ok := c.logger.(*logging.TaskLogger); ok {
		tl.WithTask(task.ID, task.ContextID).LogRoute(d.Specialist.Name, d.MatchCount, d.Fallback)
		return
	}

	c.logger.Debug("coordinator.route task_id=%s specialist=%s matches=%d fallback=%t",
		task.ID, d.Specialist.Name, d.MatchCount, d.Fallback)
}
