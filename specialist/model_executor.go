package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
	"github.com/gautammanak1/taskmesh/model"
)

// ErrEmptyQuery is returned by executors asked to work on blank text.
var ErrEmptyQuery = errors.New("no query provided")

// ModelExecutorOptions configures a ModelExecutor instance.
type ModelExecutorOptions struct {
	Instruction     Instruction
	EnableStreaming bool
	Logger          logging.Logger
}

// ModelExecutor adapts a model.Model to core.Executor. Each instance serves a
// single task; RequestCancel aborts the in-flight generation.
type ModelExecutor struct {
	descriptor  core.SpecialistDescriptor
	llm         model.Model
	instruction Instruction
	stream      bool
	logger      logging.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

var _ core.Executor = (*ModelExecutor)(nil)

// NewModelExecutor creates an executor for descriptor d backed by llm.
// Streaming is enabled and DefaultInstruction is used unless overridden.
func NewModelExecutor(d core.SpecialistDescriptor, llm model.Model, optFns ...func(o *ModelExecutorOptions)) *ModelExecutor {
	opts := ModelExecutorOptions{
		Instruction:     DefaultInstruction,
		EnableStreaming: true,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelExecutor{
		descriptor:  d,
		llm:         llm,
		instruction: opts.Instruction,
		stream:      opts.EnableStreaming,
		logger:      logging.OrNoOp(opts.Logger),
	}
}

// StreamExecute implements core.Executor. Partial model responses are
// forwarded as fragments; when the model streams nothing, the final text is
// forwarded as a single fragment.
func (e *ModelExecutor) StreamExecute(ctx context.Context, text string) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	if e.cancelled {
		cancel()
	}
	e.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)
		defer cancel()

		if strings.TrimSpace(text) == "" {
			errCh <- ErrEmptyQuery
			return
		}

		instructions, err := e.instruction.Resolve(e.descriptor)
		if err != nil {
			errCh <- fmt.Errorf("resolve instruction for %s: %w", e.descriptor.Name, err)
			return
		}

		info := e.llm.Info()
		e.logger.Debug("specialist.generate specialist=%s model=%s provider=%s", e.descriptor.Name, info.Name, info.Provider)

		resp, errs := e.llm.Generate(runCtx, model.Request{
			Instructions: instructions,
			Messages:     []model.Message{{Role: "user", Content: text}},
			Stream:       e.stream,
		})

		streamed := false
		for r := range resp {
			var fragment string
			switch {
			case r.Partial:
				streamed = true
				fragment = r.Text
			case !streamed:
				fragment = r.Text
			}
			if fragment == "" {
				continue
			}
			select {
			case out <- fragment:
			case <-runCtx.Done():
				go drain(resp, errs)
				errCh <- runCtx.Err()
				return
			}
		}

		if err := <-errs; err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// RequestCancel implements core.Executor. It never blocks and is safe to call
// before StreamExecute.
func (e *ModelExecutor) RequestCancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = true
	if e.cancel != nil {
		e.cancel()
	}
}

func drain(resp <-chan model.Response, errs <-chan error) {
	for range resp {
	}
	<-errs
}
