package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turnono/sim/pkg/types"
)

// SessionSummaryTool reports what the session holds: state counts per
// namespace, turn count and the session's running duration.
type SessionSummaryTool struct{}

// NewSessionSummaryTool creates a new session_summary tool.
func NewSessionSummaryTool() *SessionSummaryTool { return &SessionSummaryTool{} }

func (t *SessionSummaryTool) ID() string { return "session_summary" }

func (t *SessionSummaryTool) Description() string {
	return "Summarizes the current session: state counts, turns and duration."
}

func (t *SessionSummaryTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *SessionSummaryTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	state := toolCtx.Session.State
	now := time.Now()

	duration := "unknown"
	if start := state.GetFloat(types.KeySessionStart, 0); start > 0 {
		duration = formatDuration(now.Sub(time.Unix(int64(start), 0)))
	}

	turns := state.GetInt(types.KeyTurnCount, 0)
	reminders := types.RemindersFromState(state)

	toolCtx.Queue.Stage("summary_tool", types.KeyLastSummaryTime, float64(now.Unix()), "")

	message := fmt.Sprintf("Session %s: %d turns over %s", toolCtx.Session.ID, turns, duration)
	return success("session_summary", message, map[string]any{
		"sessionID": toolCtx.Session.ID,
		"turns":     turns,
		"duration":  duration,
		"reminders": len(reminders),
		"stateCounts": map[string]any{
			"profile": len(state.Profile()),
			"system":  len(state.System()),
			"temp":    len(state.Temp()),
			"session": len(state.Local()),
		},
	}), nil
}

// formatDuration renders a duration as the largest two units, e.g.
// "1h 4m" or "5m 12s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
