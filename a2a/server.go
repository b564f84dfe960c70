package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gautammanak1/taskmesh"
	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
)

// AgentCardPath is where the agent card is served.
const AgentCardPath = "/.well-known/agent.json"

// Coordinator is the part of taskmesh.Coordinator the server needs.
type Coordinator interface {
	Submit(ctx context.Context, req taskmesh.Request) (*core.Task, <-chan core.Event, error)
	Cancel(taskID string) bool
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Logger logging.Logger
}

// Server serves a coordinator over HTTP. It implements http.Handler.
type Server struct {
	coordinator Coordinator
	card        AgentCard
	logger      logging.Logger
	mux         *http.ServeMux
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a Server advertising card.
func NewServer(coordinator Coordinator, card AgentCard, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		coordinator: coordinator,
		card:        card,
		logger:      logging.OrNoOp(opts.Logger),
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("GET "+AgentCardPath, s.handleCard)
	s.mux.HandleFunc("POST /", s.handleRPC)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, nil, CodeParseError, fmt.Sprintf("parse request: %v", err))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCError(w, req.ID, CodeInvalidRequest, "invalid JSON-RPC request")
		return
	}

	switch req.Method {
	case MethodMessageStream:
		s.handleStream(w, r, req)
	case MethodTasksCancel:
		s.handleCancel(w, req)
	default:
		writeRPCError(w, req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, req Request) {
	var params MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, CodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeRPCError(w, req.ID, CodeInternalError, "streaming unsupported")
		return
	}

	task, events, err := s.coordinator.Submit(r.Context(), taskmesh.Request{
		Text:      params.Message.Text(),
		TaskID:    params.Message.TaskID,
		ContextID: params.Message.ContextID,
	})
	if err != nil {
		code := CodeInternalError
		if errors.Is(err, taskmesh.ErrTaskInFlight) {
			code = CodeInvalidParams
		}
		writeRPCError(w, req.ID, code, err.Error())
		return
	}

	s.logger.Debug("a2a.stream.started task_id=%s specialist=%s", task.ID, task.Specialist.Name)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		result, err := json.Marshal(FromEvent(ev))
		if err != nil {
			s.logger.Error("a2a.stream.encode task_id=%s: %v", task.ID, err)
			continue
		}
		payload, err := json.Marshal(Response{JSONRPC: "2.0", ID: req.ID, Result: result})
		if err != nil {
			s.logger.Error("a2a.stream.encode task_id=%s: %v", task.ID, err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client gone; keep draining so the task can finish.
			continue
		}
		flusher.Flush()
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, req Request) {
	var params TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		writeRPCError(w, req.ID, CodeInvalidParams, "invalid params: task id required")
		return
	}

	if !s.coordinator.Cancel(params.ID) {
		writeRPCError(w, req.ID, CodeTaskNotFound, fmt.Sprintf("task %s not found or already finished", params.ID))
		return
	}

	result, err := json.Marshal(CancelResult{ID: params.ID, Canceled: true})
	if err != nil {
		writeRPCError(w, req.ID, CodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func writeRPCError(w http.ResponseWriter, id any, code int, msg string) {
	writeJSON(w, http.StatusOK, Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
