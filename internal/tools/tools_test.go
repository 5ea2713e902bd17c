package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turnono/sim/internal/session"
	"github.com/turnono/sim/pkg/types"
)

func testContext(state types.State) *Context {
	if state == nil {
		state = types.State{}
	}
	sess := &types.Session{ID: "sess1", UserID: "user1", AppID: "sim-guide", State: state}
	return &Context{Session: sess, Queue: session.NewPendingQueue(sess)}
}

func run(t *testing.T, tool Tool, input string, toolCtx *Context) *Result {
	t.Helper()
	result, err := tool.Execute(context.Background(), json.RawMessage(input), toolCtx)
	require.NoError(t, err)
	return result
}

func TestAddReminder(t *testing.T) {
	toolCtx := testContext(nil)

	result := run(t, NewAddReminderTool(), `{"text": "buy milk", "priority": "high"}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, 1, result.Data["count"])

	reminders := types.RemindersFromState(toolCtx.Session.State)
	require.Len(t, reminders, 1)
	require.Equal(t, "buy milk", reminders[0].Text)
	require.Equal(t, "high", reminders[0].Priority)
	require.NotEmpty(t, reminders[0].ID)

	// The change is staged, not written.
	require.Equal(t, 1, toolCtx.Queue.Len())
}

func TestAddReminder_EmptyTextRejected(t *testing.T) {
	toolCtx := testContext(nil)

	result := run(t, NewAddReminderTool(), `{"text": ""}`, toolCtx)
	require.Equal(t, StatusError, result.Status)
	require.Equal(t, 0, toolCtx.Queue.Len())
}

func TestViewReminders_Counts(t *testing.T) {
	toolCtx := testContext(types.State{
		types.KeyReminders: []types.Reminder{
			{Text: "buy milk"},
			{Text: "call mom", Completed: true},
			{Text: "write report"},
		},
	})

	result := run(t, NewViewRemindersTool(), `{}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, 2, result.Data["active"])
	require.Equal(t, 1, result.Data["completed"])
}

func TestUpdateReminder_ByNumber(t *testing.T) {
	toolCtx := testContext(types.State{
		types.KeyReminders: []types.Reminder{{Text: "buy milk"}, {Text: "call mom"}},
	})

	result := run(t, NewUpdateReminderTool(), `{"identifier": "2", "text": "call dad"}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, 1, result.Data["index"])
	require.Equal(t, "call mom", result.Data["previous"])

	reminders := types.RemindersFromState(toolCtx.Session.State)
	require.Equal(t, "call dad", reminders[1].Text)
}

func TestUpdateReminder_MissReturnsSuggestion(t *testing.T) {
	toolCtx := testContext(types.State{
		types.KeyReminders: []types.Reminder{{Text: "buy milk"}},
	})

	result := run(t, NewUpdateReminderTool(), `{"identifier": "buy silk", "text": "x"}`, toolCtx)
	require.Equal(t, StatusNotFound, result.Status)
	require.Contains(t, result.Message, "buy milk")
	require.Equal(t, 0, toolCtx.Queue.Len())
}

func TestCompleteReminder_BySubstring(t *testing.T) {
	toolCtx := testContext(types.State{
		types.KeyReminders: []types.Reminder{{Text: "buy milk"}, {Text: "call mom"}},
	})

	result := run(t, NewCompleteReminderTool(), `{"identifier": "milk"}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)

	reminders := types.RemindersFromState(toolCtx.Session.State)
	require.True(t, reminders[0].Completed)
	require.NotNil(t, reminders[0].CompletedAt)
	require.False(t, reminders[1].Completed)

	// Completing again is a no-op, not an error.
	again := run(t, NewCompleteReminderTool(), `{"identifier": "milk"}`, toolCtx)
	require.Equal(t, StatusSuccess, again.Status)
	require.Contains(t, again.Message, "already")
}

func TestDeleteReminder_Last(t *testing.T) {
	toolCtx := testContext(types.State{
		types.KeyReminders: []types.Reminder{{Text: "buy milk"}, {Text: "call mom"}},
	})

	result := run(t, NewDeleteReminderTool(), `{"identifier": "last"}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, "call mom", result.Data["text"])

	reminders := types.RemindersFromState(toolCtx.Session.State)
	require.Len(t, reminders, 1)
	require.Equal(t, "buy milk", reminders[0].Text)
}

func TestDeleteReminder_EmptyListIsNotFound(t *testing.T) {
	toolCtx := testContext(nil)

	result := run(t, NewDeleteReminderTool(), `{"identifier": "1"}`, toolCtx)
	require.Equal(t, StatusNotFound, result.Status)
}

func TestUpdatePreference(t *testing.T) {
	toolCtx := testContext(types.State{"profile:timezone": "UTC+2"})

	result := run(t, NewUpdatePreferenceTool(), `{"name": "timezone", "value": "UTC+3"}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, true, result.Data["changed"])
	require.Equal(t, "UTC+3", toolCtx.Session.State["profile:timezone"])
}

func TestUpdatePreference_UnchangedIsNoOp(t *testing.T) {
	toolCtx := testContext(types.State{"profile:timezone": "UTC+2"})

	result := run(t, NewUpdatePreferenceTool(), `{"name": "timezone", "value": "UTC+2"}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, false, result.Data["changed"])
	require.Equal(t, 0, toolCtx.Queue.Len())
}

func TestUpdatePreference_EmptyNameRejected(t *testing.T) {
	toolCtx := testContext(nil)

	result := run(t, NewUpdatePreferenceTool(), `{"name": "  ", "value": "x"}`, toolCtx)
	require.Equal(t, StatusError, result.Status)
}

func TestUpdatePreference_RemindersGuarded(t *testing.T) {
	toolCtx := testContext(nil)

	result := run(t, NewUpdatePreferenceTool(), `{"name": "reminders", "value": []}`, toolCtx)
	require.Equal(t, StatusError, result.Status)
}

func TestGetPreferences_StripsPrefix(t *testing.T) {
	toolCtx := testContext(types.State{
		"profile:name":      "Abdullah",
		"profile:timezone":  "UTC+2",
		"profile:reminders": []types.Reminder{{Text: "x"}},
		"system:version":    "1.0.0",
	})

	result := run(t, NewGetPreferencesTool(), `{}`, toolCtx)
	prefs := result.Data["preferences"].(types.State)
	require.Equal(t, "Abdullah", prefs["name"])
	require.Equal(t, "UTC+2", prefs["timezone"])
	require.NotContains(t, prefs, "reminders")
	require.NotContains(t, prefs, "version")
}

func TestSessionSummary(t *testing.T) {
	toolCtx := testContext(types.State{
		types.KeySessionStart:       float64(1700000000),
		types.KeyTurnCount:          5,
		"profile:name":              "Abdullah",
		"system:version":            "1.0.0",
		"temp:last_query_timestamp": float64(1700000100),
	})

	result := run(t, NewSessionSummaryTool(), `{}`, toolCtx)
	require.Equal(t, StatusSuccess, result.Status)
	require.Equal(t, 5, result.Data["turns"])

	counts := result.Data["stateCounts"].(map[string]any)
	require.Equal(t, 1, counts["profile"])
	require.Equal(t, 1, counts["system"])
	require.Equal(t, 1, counts["temp"])

	// The summary timestamp is staged for persistence.
	require.True(t, toolCtx.Session.State.Has(types.KeyLastSummaryTime))
	require.Equal(t, 1, toolCtx.Queue.Len())
}

func TestRegistry_DispatchStagesBookkeeping(t *testing.T) {
	registry := NewRegistry()
	toolCtx := testContext(nil)

	result, err := registry.Execute(context.Background(), "add_reminder", json.RawMessage(`{"text": "buy milk"}`), toolCtx)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)

	state := toolCtx.Session.State
	require.Equal(t, 1, state.GetInt("temp:tool_invocation_count", 0))
	require.Equal(t, "add_reminder", state.GetString("temp:last_tool_invoked", ""))

	_, err = registry.Execute(context.Background(), "view_reminders", json.RawMessage(`{}`), toolCtx)
	require.NoError(t, err)
	require.Equal(t, 2, state.GetInt("temp:tool_invocation_count", 0))
}

func TestRegistry_UnknownTool(t *testing.T) {
	registry := NewRegistry()
	toolCtx := testContext(nil)

	_, err := registry.Execute(context.Background(), "no_such_tool", json.RawMessage(`{}`), toolCtx)
	require.Error(t, err)
}
