package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gautammanak1/taskmesh"
	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/internal/testutil"
	"github.com/gautammanak1/taskmesh/registry"
)

func tripPlanner() core.SpecialistDescriptor {
	return core.SpecialistDescriptor{
		Name:        "trip_planner",
		Description: "Plans trips",
		Specialties: []string{"Trip Planning", "itinerary creation", "travel tips", "budget planning"},
		Priority:    2,
	}
}

func newServer(t *testing.T, exec core.Executor) (*httptest.Server, *taskmesh.Coordinator) {
	t.Helper()
	reg := registry.New().MustRegister(tripPlanner())
	coord, err := taskmesh.New(reg, core.ResolverFunc(func(core.SpecialistDescriptor) (core.Executor, error) {
		return exec, nil
	}))
	require.NoError(t, err)

	card := NewAgentCard("Coordinator", "Routes tasks", "http://localhost/", reg.All())
	srv := httptest.NewServer(NewServer(coord, card))
	t.Cleanup(srv.Close)

	return srv, coord
}

func collectFragments(out <-chan string, errs <-chan error) ([]string, error) {
	var fragments []string
	for f := range out {
		fragments = append(fragments, f)
	}
	return fragments, <-errs
}

func TestSkillFor(t *testing.T) {
	skill := SkillFor(tripPlanner())
	assert.Equal(t, "trip_planner_skill", skill.ID)
	assert.Equal(t, "Trip Planner", skill.Name)
	assert.Equal(t, []string{"Trip Planning", "itinerary creation", "travel tips", "budget planning"}, skill.Tags)
	assert.Equal(t, []string{"Help with trip planning", "Help with itinerary creation", "Help with travel tips"}, skill.Examples)
}

func TestServer_AgentCard(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor())

	card, err := NewClient(srv.URL).Card(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Coordinator", card.Name)
	assert.Equal(t, CardVersion, card.Version)
	assert.True(t, card.Capabilities.Streaming)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "trip_planner_skill", card.Skills[0].ID)
}

func TestServer_MessageStream(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor("a", "b", "c"))

	msg := NewTextMessage("plan my trip")
	msg.TaskID = "task-1"
	msg.ContextID = "ctx-1"

	var got []StreamEvent
	err := NewClient(srv.URL).Stream(context.Background(), msg, func(ev StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 4)
	for i, want := range []string{"a", "b", "c"} {
		require.NotNil(t, got[i].Artifact)
		assert.Equal(t, want, got[i].Artifact.Artifact.Parts[0].Text)
		assert.Equal(t, "task-1", got[i].Artifact.TaskID)
		assert.True(t, got[i].Artifact.Append)
	}
	final := got[3].Status
	require.NotNil(t, final)
	assert.True(t, final.Final)
	assert.Equal(t, string(core.TaskStateCompleted), final.Status.State)
	assert.Equal(t, "ctx-1", final.ContextID)
}

func TestRemoteExecutor_Completes(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor("Day 1", " Day 2"))

	fragments, err := collectFragments(NewRemoteExecutor(srv.URL).StreamExecute(context.Background(), "plan my trip"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Day 1", " Day 2"}, fragments)
}

func TestRemoteExecutor_Failure(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor("partial").WithError(errors.New("model exploded")))

	fragments, err := collectFragments(NewRemoteExecutor(srv.URL).StreamExecute(context.Background(), "plan my trip"))
	assert.EqualError(t, err, "model exploded")
	assert.Equal(t, []string{"partial"}, fragments)
}

func TestRemoteExecutor_EmptyQueryFailsRemotely(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor("never"))

	_, err := collectFragments(NewRemoteExecutor(srv.URL).StreamExecute(context.Background(), ""))
	assert.EqualError(t, err, "no query provided")
}

func TestRemoteExecutor_RequestCancel(t *testing.T) {
	remote := testutil.NewScriptedExecutor("first").Holding()
	srv, _ := newServer(t, remote)

	exec := NewRemoteExecutor(srv.URL)
	out, errs := exec.StreamExecute(context.Background(), "plan my trip")

	assert.Equal(t, "first", <-out)
	exec.RequestCancel()

	_, err := collectFragments(out, errs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Eventually(t, func() bool { return remote.Cancels() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_CancelUnknownTask(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor())

	_, err := NewClient(srv.URL).Cancel(context.Background(), "missing")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeTaskNotFound, rpcErr.Code)
}

func TestClient_CancelInFlight(t *testing.T) {
	remote := testutil.NewScriptedExecutor().Holding()
	srv, coord := newServer(t, remote)

	_, events, err := coord.Submit(context.Background(), taskmesh.Request{Text: "plan", TaskID: "t-1"})
	require.NoError(t, err)
	<-remote.Started()

	res, err := NewClient(srv.URL).Cancel(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, CancelResult{ID: "t-1", Canceled: true}, res)

	final, ok := testutil.Terminal(drain(events))
	require.True(t, ok)
	assert.Equal(t, core.TaskStateCanceled, final.State)
}

func TestServer_RPCErrors(t *testing.T) {
	srv, _ := newServer(t, testutil.NewScriptedExecutor())

	cases := []struct {
		name string
		body string
		code int
	}{
		{name: "parse", body: "{", code: CodeParseError},
		{name: "version", body: `{"jsonrpc":"1.0","id":1,"method":"tasks/cancel"}`, code: CodeInvalidRequest},
		{name: "method", body: `{"jsonrpc":"2.0","id":1,"method":"tasks/get"}`, code: CodeMethodNotFound},
		{name: "params", body: `{"jsonrpc":"2.0","id":1,"method":"tasks/cancel","params":{}}`, code: CodeInvalidParams},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewBufferString(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			var out Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			require.NotNil(t, out.Error)
			assert.Equal(t, tc.code, out.Error.Code)
		})
	}
}

func TestRemoteResolver(t *testing.T) {
	r := NewRemoteResolver()

	_, err := r.Resolve(tripPlanner())
	assert.ErrorIs(t, err, ErrNoEndpoint)

	d := tripPlanner()
	d.Endpoint = "http://localhost:10020/"
	exec, err := r.Resolve(d)
	require.NoError(t, err)
	assert.IsType(t, &RemoteExecutor{}, exec)
}

func TestFromEvent_ErrorNotice(t *testing.T) {
	ev := core.NewErrorNotice("t", "c", "boom")
	st, ok := FromEvent(ev).(TaskStatusUpdateEvent)
	require.True(t, ok)
	assert.True(t, st.IsErrorNotice())
	assert.False(t, st.Final)
	assert.Equal(t, "boom", st.Status.Message.Text())

	partial, ok := FromEvent(core.NewConsolidatedResult("t", "c", "all")).(TaskArtifactUpdateEvent)
	require.True(t, ok)
	assert.True(t, partial.LastChunk)
	assert.Equal(t, core.ArtifactFinalResult, partial.Artifact.Name)
}

func TestSSEScanner(t *testing.T) {
	s := newSSEScanner(strings.NewReader(": comment\nevent: x\ndata: one\ndata: two\n\ndata: last"))

	require.True(t, s.Next())
	assert.Equal(t, sseEvent{Type: "x", Data: "one\ntwo"}, s.Event())
	require.True(t, s.Next())
	assert.Equal(t, "last", s.Event().Data)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func drain(events <-chan core.Event) []core.Event {
	var out []core.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}
