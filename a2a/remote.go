package a2a

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
)

// ErrNoEndpoint is returned when a specialist has no endpoint to forward to.
var ErrNoEndpoint = errors.New("specialist has no endpoint")

// cancelTimeout bounds the fire-and-forget tasks/cancel call.
const cancelTimeout = 5 * time.Second

// RemoteOptions configures remote executors.
type RemoteOptions struct {
	HTTPClient *http.Client
	Logger     logging.Logger
}

// RemoteExecutor forwards one task to a remote agent and relays its
// current_result chunks as fragments.
type RemoteExecutor struct {
	client *Client
	logger logging.Logger

	mu           sync.Mutex
	cancel       context.CancelFunc
	cancelled    bool
	remoteTaskID string
}

var _ core.Executor = (*RemoteExecutor)(nil)

// NewRemoteExecutor creates an executor for the agent at endpoint.
func NewRemoteExecutor(endpoint string, optFns ...func(o *RemoteOptions)) *RemoteExecutor {
	opts := RemoteOptions{HTTPClient: http.DefaultClient, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RemoteExecutor{
		client: NewClient(endpoint, func(o *ClientOptions) { o.HTTPClient = opts.HTTPClient }),
		logger: logging.OrNoOp(opts.Logger),
	}
}

// StreamExecute implements core.Executor.
func (e *RemoteExecutor) StreamExecute(ctx context.Context, text string) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	msg := NewTextMessage(text)
	msg.TaskID = core.NewID()

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.remoteTaskID = msg.TaskID
	if e.cancelled {
		cancel()
	}
	e.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)
		defer cancel()

		err := e.client.Stream(runCtx, msg, e.forward(runCtx, out))
		switch {
		case errors.Is(err, errRemoteCompleted):
		case runCtx.Err() != nil:
			errCh <- runCtx.Err()
		case err != nil:
			errCh <- err
		default:
			errCh <- errors.New("remote stream ended without a final status")
		}
	}()

	return out, errCh
}

// errRemoteCompleted stops the stream once the final completed status arrives.
var errRemoteCompleted = errors.New("remote task completed")

func (e *RemoteExecutor) forward(ctx context.Context, out chan<- string) func(StreamEvent) error {
	var notice string

	return func(ev StreamEvent) error {
		if a := ev.Artifact; a != nil {
			if a.Artifact.Name != core.ArtifactCurrentResult {
				return nil
			}
			for _, p := range a.Artifact.Parts {
				if p.Kind != "text" || p.Text == "" {
					continue
				}
				select {
				case out <- p.Text:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}

		st := ev.Status
		if st == nil {
			return nil
		}
		text := ""
		if st.Status.Message != nil {
			text = st.Status.Message.Text()
		}
		if st.IsErrorNotice() {
			notice = text
			return nil
		}
		if !st.Final {
			return nil
		}

		switch core.TaskState(st.Status.State) {
		case core.TaskStateCompleted:
			return errRemoteCompleted
		case core.TaskStateCanceled:
			return fmt.Errorf("remote task canceled: %s", text)
		default:
			if notice == "" {
				notice = text
			}
			if notice == "" {
				notice = "remote task " + st.Status.State
			}
			return errors.New(notice)
		}
	}
}

// RequestCancel implements core.Executor. The local stream is aborted at once
// and the remote agent is asked to cancel in the background.
func (e *RemoteExecutor) RequestCancel() {
	e.mu.Lock()
	e.cancelled = true
	if e.cancel != nil {
		e.cancel()
	}
	taskID := e.remoteTaskID
	e.mu.Unlock()

	if taskID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
		defer cancel()
		if _, err := e.client.Cancel(ctx, taskID); err != nil {
			e.logger.Debug("a2a.remote.cancel task_id=%s: %v", taskID, err)
		}
	}()
}

// RemoteResolver is a core.Resolver creating a RemoteExecutor from each
// specialist's Endpoint.
type RemoteResolver struct {
	optFns []func(o *RemoteOptions)
}

var _ core.Resolver = (*RemoteResolver)(nil)

// NewRemoteResolver creates a RemoteResolver; optFns apply to every executor.
func NewRemoteResolver(optFns ...func(o *RemoteOptions)) *RemoteResolver {
	return &RemoteResolver{optFns: optFns}
}

// Resolve implements core.Resolver.
func (r *RemoteResolver) Resolve(d core.SpecialistDescriptor) (core.Executor, error) {
	if strings.TrimSpace(d.Endpoint) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, d.Name)
	}
	return NewRemoteExecutor(d.Endpoint, r.optFns...), nil
}
