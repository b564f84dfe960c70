package specialist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/internal/testutil"
	"github.com/gautammanak1/taskmesh/model"
)

// recordingModel captures the last request and answers with a fixed text.
type recordingModel struct {
	mu   sync.Mutex
	last model.Request
}

func (m *recordingModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	out <- model.Response{Text: "ok", FinishReason: "stop"}
	close(out)
	close(errCh)
	return out, errCh
}

func (m *recordingModel) Info() model.Info { return model.Info{Name: "recording", Provider: "test"} }

func (m *recordingModel) request() model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// blockingModel emits one partial and then waits for cancellation.
type blockingModel struct{}

func (blockingModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		if ctx.Err() != nil {
			errCh <- ctx.Err()
			return
		}
		select {
		case out <- model.Response{Partial: true, Text: "first"}:
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		}
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return out, errCh
}

func (blockingModel) Info() model.Info { return model.Info{Name: "blocking", Provider: "test"} }

func collect(out <-chan string, errs <-chan error) ([]string, error) {
	var fragments []string
	for f := range out {
		fragments = append(fragments, f)
	}
	return fragments, <-errs
}

func descriptor() core.SpecialistDescriptor {
	return core.SpecialistDescriptor{Name: "trip_planner", Specialties: []string{"trip planning", "travel tips"}}
}

func TestModelExecutor_Streams(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("plan rome", "three days in rome")
	llm.SetChunkSize(5)

	exec := NewModelExecutor(descriptor(), llm)
	fragments, err := collect(exec.StreamExecute(context.Background(), "plan rome"))

	require.NoError(t, err)
	assert.Greater(t, len(fragments), 1)
	assert.Equal(t, "three days in rome", strings.Join(fragments, ""))
}

func TestModelExecutor_NonStreamingForwardsFinalText(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("plan rome", "three days in rome")

	exec := NewModelExecutor(descriptor(), llm, func(o *ModelExecutorOptions) { o.EnableStreaming = false })
	fragments, err := collect(exec.StreamExecute(context.Background(), "plan rome"))

	require.NoError(t, err)
	assert.Equal(t, []string{"three days in rome"}, fragments)
}

func TestModelExecutor_EmptyQuery(t *testing.T) {
	exec := NewModelExecutor(descriptor(), model.NewMockModel("mock", "mock"))
	fragments, err := collect(exec.StreamExecute(context.Background(), "   "))

	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, fragments)
}

func TestModelExecutor_ModelFailure(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("q", "ab")
	llm.AddFailure("q", errors.New("rate limited"))

	fragments, err := collect(NewModelExecutor(descriptor(), llm).StreamExecute(context.Background(), "q"))

	assert.EqualError(t, err, "rate limited")
	assert.Equal(t, []string{"a", "b"}, fragments)
}

func TestModelExecutor_RendersInstruction(t *testing.T) {
	llm := &recordingModel{}
	_, err := collect(NewModelExecutor(descriptor(), llm).StreamExecute(context.Background(), "hello"))
	require.NoError(t, err)

	req := llm.request()
	assert.Equal(t, "You are trip_planner, a helpful specialist focused on trip planning, travel tips.", req.Instructions)
	assert.Equal(t, "hello", req.LastUserText())
	assert.True(t, req.Stream)
}

func TestModelExecutor_RequestCancel(t *testing.T) {
	exec := NewModelExecutor(descriptor(), blockingModel{})
	out, errs := exec.StreamExecute(context.Background(), "plan")

	assert.Equal(t, "first", <-out)
	exec.RequestCancel()

	fragments, err := collect(out, errs)
	assert.Empty(t, fragments)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelExecutor_CancelBeforeStart(t *testing.T) {
	exec := NewModelExecutor(descriptor(), blockingModel{})
	exec.RequestCancel()

	fragments, err := collect(exec.StreamExecute(context.Background(), "plan"))
	assert.Empty(t, fragments)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstruction(t *testing.T) {
	d := descriptor()

	text, err := NewInstructionFromText("static").Resolve(d)
	require.NoError(t, err)
	assert.Equal(t, "static", text)

	text, err = NewInstructionFromText("{{upper .name}}").Resolve(d)
	require.NoError(t, err)
	assert.Equal(t, "TRIP_PLANNER", text)

	text, err = NewInstructionFromText(`{{title "trip planner"}} ({{default "none" .description}})`).Resolve(d)
	require.NoError(t, err)
	assert.Equal(t, "Trip Planner (none)", text)

	inst := NewInstructionFromFunc(func(d core.SpecialistDescriptor) (string, error) { return "dyn " + d.Name, nil })
	assert.False(t, inst.IsStatic())
	text, err = inst.Resolve(d)
	require.NoError(t, err)
	assert.Equal(t, "dyn trip_planner", text)

	_, err = NewInstructionFromText("{{.name").Resolve(d)
	assert.Error(t, err)
}

func TestDirectory(t *testing.T) {
	bound := testutil.NewScriptedExecutor("bound")
	fallback := testutil.NewScriptedExecutor("fallback")

	dir := NewDirectory().
		Register("trip_planner", func(core.SpecialistDescriptor) (core.Executor, error) { return bound, nil })

	exec, err := dir.Resolve(descriptor())
	require.NoError(t, err)
	assert.Same(t, bound, exec)

	_, err = dir.Resolve(core.SpecialistDescriptor{Name: "unknown"})
	assert.ErrorIs(t, err, ErrNoExecutor)

	dir.SetFallback(func(core.SpecialistDescriptor) (core.Executor, error) { return fallback, nil })
	exec, err = dir.Resolve(core.SpecialistDescriptor{Name: "unknown"})
	require.NoError(t, err)
	assert.Same(t, fallback, exec)
}

func TestModelFactory_FreshExecutorPerTask(t *testing.T) {
	f := ModelFactory(model.NewMockModel("mock", "mock"))
	a, err := f(descriptor())
	require.NoError(t, err)
	b, err := f(descriptor())
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	_, err = ModelFactory(nil)(descriptor())
	assert.ErrorIs(t, err, ErrNoExecutor)
}

func TestPersonas(t *testing.T) {
	assert.Equal(t, PriorityExpert, DefaultPriority([]string{"coding"}))
	assert.Equal(t, PriorityExpert, DefaultPriority([]string{"analysis", "research"}))
	assert.Equal(t, PriorityStandard, DefaultPriority([]string{"research papers"}))

	personas := Personas()
	require.Len(t, personas, 3)
	assert.Equal(t, "research_agent", personas[0].Descriptor.Name)
	assert.True(t, personas[0].Descriptor.Default)
	assert.Equal(t, PriorityStandard, Travel().Descriptor.Priority)
	assert.Equal(t, PriorityExpert, Coding().Descriptor.Priority)

	llm := &recordingModel{}
	dir := PersonaDirectory(llm, personas)
	exec, err := dir.Resolve(Coding().Descriptor)
	require.NoError(t, err)
	_, err = collect(exec.StreamExecute(context.Background(), "fix my bug"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.request().Instructions, "You are an expert coding assistant"))
}

type mockModel struct{ mock.Mock }

func (m *mockModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	args := m.Called(ctx, req)

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	if err := args.Error(1); err != nil {
		errCh <- err
	} else {
		respCh <- model.Response{Text: args.String(0), FinishReason: "stop"}
	}

	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (m *mockModel) Info() model.Info { return model.Info{Name: "mock", Provider: "testify"} }

func TestModelExecutor_SendsInstructionAndQuery(t *testing.T) {
	llm := new(mockModel)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req model.Request) bool {
		return req.Instructions == "be brief" &&
			req.Stream &&
			req.LastUserText() == "where to go"
	})).Return("Lisbon", nil).Once()

	exec := NewModelExecutor(descriptor(), llm, func(o *ModelExecutorOptions) {
		o.Instruction = NewInstructionFromText("be brief")
	})

	frags, errs := exec.StreamExecute(context.Background(), "where to go")

	var got []string
	for f := range frags {
		got = append(got, f)
	}

	require.NoError(t, <-errs)
	assert.Equal(t, []string{"Lisbon"}, got)
	llm.AssertExpectations(t)
}
