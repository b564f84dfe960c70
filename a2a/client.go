package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
}

// Client speaks the JSON-RPC protocol served by Server.
type Client struct {
	baseURL string
	http    *http.Client
	nextID  atomic.Int64
}

// NewClient creates a client for the agent at baseURL.
func NewClient(baseURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{HTTPClient: http.DefaultClient}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: opts.HTTPClient}
}

// Card fetches the remote agent card.
func (c *Client) Card(ctx context.Context) (AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+AgentCardPath, nil)
	if err != nil {
		return AgentCard{}, fmt.Errorf("build card request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return AgentCard{}, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AgentCard{}, fmt.Errorf("fetch agent card: unexpected status %s", resp.Status)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return AgentCard{}, fmt.Errorf("decode agent card: %w", err)
	}

	return card, nil
}

// Stream sends msg with message/stream and calls fn for every result until
// the stream ends, fn returns an error, or ctx is done.
func (c *Client) Stream(ctx context.Context, msg Message, fn func(StreamEvent) error) error {
	resp, err := c.post(ctx, MethodMessageStream, MessageSendParams{Message: msg})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		// Errors are answered as plain JSON-RPC responses.
		_, err := decodeResponse(resp.Body)
		if err == nil {
			err = fmt.Errorf("message/stream: expected event stream, got %q", resp.Header.Get("Content-Type"))
		}
		return err
	}

	scanner := newSSEScanner(resp.Body)
	for scanner.Next() {
		var envelope Response
		if err := json.Unmarshal([]byte(scanner.Event().Data), &envelope); err != nil {
			return fmt.Errorf("decode stream response: %w", err)
		}
		if envelope.Error != nil {
			return envelope.Error
		}

		ev, err := decodeStreamEvent(envelope.Result)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}

	return nil
}

// Cancel asks the remote agent to cancel taskID.
func (c *Client) Cancel(ctx context.Context, taskID string) (CancelResult, error) {
	resp, err := c.post(ctx, MethodTasksCancel, TaskIDParams{ID: taskID})
	if err != nil {
		return CancelResult{}, err
	}
	defer resp.Body.Close()

	raw, err := decodeResponse(resp.Body)
	if err != nil {
		return CancelResult{}, err
	}

	var result CancelResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CancelResult{}, fmt.Errorf("decode cancel result: %w", err)
	}

	return result, nil
}

func (c *Client) post(ctx context.Context, method string, params any) (*http.Response, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", method, err)
	}

	body, err := json.Marshal(Request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: rawParams})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %s", method, resp.Status)
	}

	return resp, nil
}

func decodeResponse(r io.Reader) (json.RawMessage, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func decodeStreamEvent(raw json.RawMessage) (StreamEvent, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return StreamEvent{}, fmt.Errorf("decode stream result: %w", err)
	}

	switch head.Kind {
	case KindStatusUpdate:
		var ev TaskStatusUpdateEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return StreamEvent{}, fmt.Errorf("decode status update: %w", err)
		}
		return StreamEvent{Status: &ev}, nil
	case KindArtifactUpdate:
		var ev TaskArtifactUpdateEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return StreamEvent{}, fmt.Errorf("decode artifact update: %w", err)
		}
		return StreamEvent{Artifact: &ev}, nil
	default:
		return StreamEvent{}, fmt.Errorf("unknown stream result kind %q", head.Kind)
	}
}
