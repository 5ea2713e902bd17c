// Package tools provides the in-process operations the request surface
// dispatches against a session: reminder management, preference
// management and session summaries. Tools never write to the session
// store directly; every mutation is staged on the turn's pending queue.
package tools

import (
	"context"
	"encoding/json"

	"github.com/turnono/sim/internal/session"
	"github.com/turnono/sim/pkg/types"
)

// Status classifies a tool outcome. A not_found is an expected miss the
// caller must surface verbatim, never a guess or a failure.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found"
)

// Tool defines the interface for all tools.
type Tool interface {
	// ID returns the tool identifier.
	ID() string

	// Description returns the tool description.
	Description() string

	// Parameters returns the JSON Schema for tool parameters.
	Parameters() json.RawMessage

	// Execute runs the tool. Validation and resolution misses come back
	// as structured results; the error return is reserved for malformed
	// input a caller bug produced.
	Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error)
}

// Context provides execution context to tools: the session's in-memory
// projection and the turn's pending queue.
type Context struct {
	Session *types.Session
	Queue   *session.PendingQueue
}

// Result represents the output of a tool execution.
type Result struct {
	Action  string         `json:"action"`
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func success(action, message string, data map[string]any) *Result {
	return &Result{Action: action, Status: StatusSuccess, Message: message, Data: data}
}

func invalid(action, message string) *Result {
	return &Result{Action: action, Status: StatusError, Message: message}
}

func noMatch(action, message string) *Result {
	return &Result{Action: action, Status: StatusNotFound, Message: message}
}
