package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/pkg/types"
)

// Registry manages tool registration and dispatch.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry with the standard tool set installed.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(NewAddReminderTool())
	r.Register(NewViewRemindersTool())
	r.Register(NewUpdateReminderTool())
	r.Register(NewCompleteReminderTool())
	r.Register(NewDeleteReminderTool())
	r.Register(NewUpdatePreferenceTool())
	r.Register(NewGetPreferencesTool())
	r.Register(NewSessionSummaryTool())
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.ID()] = tool
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}

// IDs returns all tool IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execute dispatches one tool invocation and stages the invocation
// bookkeeping on the turn's queue.
func (r *Registry) Execute(ctx context.Context, id string, input json.RawMessage, toolCtx *Context) (*Result, error) {
	tool, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", id)
	}

	count := toolCtx.Session.State.GetInt(types.PrefixTemp+"tool_invocation_count", 0) + 1
	toolCtx.Queue.Stage("system", types.PrefixTemp+"tool_invocation_count", count, "")
	toolCtx.Queue.Stage("system", types.PrefixTemp+"last_tool_invoked", id, "")

	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		logging.Warn().Err(err).Str("tool", id).Msg("tool execution failed")
		return nil, err
	}

	logging.Debug().
		Str("tool", id).
		Str("status", string(result.Status)).
		Str("sessionID", toolCtx.Session.ID).
		Msg("tool executed")
	return result, nil
}
