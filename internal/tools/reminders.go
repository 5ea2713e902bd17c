package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/turnono/sim/internal/resolve"
	"github.com/turnono/sim/pkg/types"
)

// AddReminderTool appends a reminder to the user's list.
type AddReminderTool struct{}

// AddReminderInput represents the input for the add_reminder tool.
type AddReminderInput struct {
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
}

// NewAddReminderTool creates a new add_reminder tool.
func NewAddReminderTool() *AddReminderTool { return &AddReminderTool{} }

func (t *AddReminderTool) ID() string { return "add_reminder" }

func (t *AddReminderTool) Description() string {
	return "Adds a reminder to the user's reminder list."
}

func (t *AddReminderTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {
				"type": "string",
				"description": "The reminder text"
			},
			"priority": {
				"type": "string",
				"description": "Optional priority (low, medium, high)"
			}
		},
		"required": ["text"]
	}`)
}

func (t *AddReminderTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params AddReminderInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Text == "" {
		return invalid("add_reminder", "reminder text must not be empty"), nil
	}

	reminders := types.RemindersFromState(toolCtx.Session.State)
	reminders = append(reminders, types.Reminder{
		ID:        ulid.Make().String(),
		Text:      params.Text,
		Priority:  params.Priority,
		CreatedAt: time.Now().UnixMilli(),
	})
	stageReminders(toolCtx, reminders, fmt.Sprintf("Added reminder: %s", params.Text))

	return success("add_reminder", fmt.Sprintf("Added reminder: %s", params.Text), map[string]any{
		"index": len(reminders) - 1,
		"count": len(reminders),
	}), nil
}

// ViewRemindersTool reports the reminder list with active and completed
// counts.
type ViewRemindersTool struct{}

// NewViewRemindersTool creates a new view_reminders tool.
func NewViewRemindersTool() *ViewRemindersTool { return &ViewRemindersTool{} }

func (t *ViewRemindersTool) ID() string { return "view_reminders" }

func (t *ViewRemindersTool) Description() string {
	return "Lists the user's reminders with active and completed counts."
}

func (t *ViewRemindersTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ViewRemindersTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	reminders := types.RemindersFromState(toolCtx.Session.State)

	active := 0
	completed := 0
	for _, r := range reminders {
		if r.Completed {
			completed++
		} else {
			active++
		}
	}

	message := fmt.Sprintf("%d reminders (%d active, %d completed)", len(reminders), active, completed)
	return success("view_reminders", message, map[string]any{
		"reminders": reminders,
		"active":    active,
		"completed": completed,
	}), nil
}

// UpdateReminderTool rewrites the text of a referenced reminder.
type UpdateReminderTool struct{}

// UpdateReminderInput represents the input for the update_reminder tool.
type UpdateReminderInput struct {
	Identifier string `json:"identifier"`
	Text       string `json:"text"`
}

// NewUpdateReminderTool creates a new update_reminder tool.
func NewUpdateReminderTool() *UpdateReminderTool { return &UpdateReminderTool{} }

func (t *UpdateReminderTool) ID() string { return "update_reminder" }

func (t *UpdateReminderTool) Description() string {
	return "Updates the text of a reminder referenced by position or content."
}

func (t *UpdateReminderTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"identifier": {
				"type": "string",
				"description": "Which reminder: a number, an ordinal like 'first' or 'last', or a fragment of its text"
			},
			"text": {
				"type": "string",
				"description": "The new reminder text"
			}
		},
		"required": ["identifier", "text"]
	}`)
}

func (t *UpdateReminderTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params UpdateReminderInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Identifier == "" {
		return invalid("update_reminder", "reminder identifier must not be empty"), nil
	}
	if params.Text == "" {
		return invalid("update_reminder", "reminder text must not be empty"), nil
	}

	reminders, idx, miss := resolveReminder(toolCtx, "update_reminder", params.Identifier)
	if miss != nil {
		return miss, nil
	}

	old := reminders[idx].Text
	reminders[idx].Text = params.Text
	stageReminders(toolCtx, reminders, fmt.Sprintf("Updated reminder %d: %s", idx+1, params.Text))

	return success("update_reminder", fmt.Sprintf("Updated reminder %d", idx+1), map[string]any{
		"index":    idx,
		"previous": old,
		"text":     params.Text,
	}), nil
}

// CompleteReminderTool marks a referenced reminder as done. Completion
// keeps the item in place; it is not a delete.
type CompleteReminderTool struct{}

// CompleteReminderInput represents the input for the complete_reminder tool.
type CompleteReminderInput struct {
	Identifier string `json:"identifier"`
}

// NewCompleteReminderTool creates a new complete_reminder tool.
func NewCompleteReminderTool() *CompleteReminderTool { return &CompleteReminderTool{} }

func (t *CompleteReminderTool) ID() string { return "complete_reminder" }

func (t *CompleteReminderTool) Description() string {
	return "Marks a reminder as completed, referenced by position or content."
}

func (t *CompleteReminderTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"identifier": {
				"type": "string",
				"description": "Which reminder: a number, an ordinal like 'first' or 'last', or a fragment of its text"
			}
		},
		"required": ["identifier"]
	}`)
}

func (t *CompleteReminderTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params CompleteReminderInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Identifier == "" {
		return invalid("complete_reminder", "reminder identifier must not be empty"), nil
	}

	reminders, idx, miss := resolveReminder(toolCtx, "complete_reminder", params.Identifier)
	if miss != nil {
		return miss, nil
	}

	if reminders[idx].Completed {
		return success("complete_reminder", fmt.Sprintf("Reminder %d is already completed", idx+1), map[string]any{
			"index": idx,
			"text":  reminders[idx].Text,
		}), nil
	}

	now := time.Now().UnixMilli()
	reminders[idx].Completed = true
	reminders[idx].CompletedAt = &now
	stageReminders(toolCtx, reminders, fmt.Sprintf("Completed reminder: %s", reminders[idx].Text))

	return success("complete_reminder", fmt.Sprintf("Completed reminder: %s", reminders[idx].Text), map[string]any{
		"index": idx,
		"text":  reminders[idx].Text,
	}), nil
}

// DeleteReminderTool removes a referenced reminder from the list.
type DeleteReminderTool struct{}

// DeleteReminderInput represents the input for the delete_reminder tool.
type DeleteReminderInput struct {
	Identifier string `json:"identifier"`
}

// NewDeleteReminderTool creates a new delete_reminder tool.
func NewDeleteReminderTool() *DeleteReminderTool { return &DeleteReminderTool{} }

func (t *DeleteReminderTool) ID() string { return "delete_reminder" }

func (t *DeleteReminderTool) Description() string {
	return "Deletes a reminder, referenced by position or content."
}

func (t *DeleteReminderTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"identifier": {
				"type": "string",
				"description": "Which reminder: a number, an ordinal like 'first' or 'last', or a fragment of its text"
			}
		},
		"required": ["identifier"]
	}`)
}

func (t *DeleteReminderTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params DeleteReminderInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Identifier == "" {
		return invalid("delete_reminder", "reminder identifier must not be empty"), nil
	}

	reminders, idx, miss := resolveReminder(toolCtx, "delete_reminder", params.Identifier)
	if miss != nil {
		return miss, nil
	}

	deleted := reminders[idx]
	reminders = append(reminders[:idx], reminders[idx+1:]...)
	stageReminders(toolCtx, reminders, fmt.Sprintf("Deleted reminder: %s", deleted.Text))

	return success("delete_reminder", fmt.Sprintf("Deleted reminder: %s", deleted.Text), map[string]any{
		"text":  deleted.Text,
		"count": len(reminders),
	}), nil
}

// resolveReminder maps the identifier onto the session's reminder list.
// A miss comes back as a ready-to-return not_found result, with the
// nearest item offered when one exists.
func resolveReminder(toolCtx *Context, action, identifier string) ([]types.Reminder, int, *Result) {
	reminders := types.RemindersFromState(toolCtx.Session.State)
	if len(reminders) == 0 {
		return nil, 0, noMatch(action, "no reminders exist yet")
	}

	res := resolve.Resolve(types.ReminderTexts(reminders), identifier)
	if !res.Found {
		message := fmt.Sprintf("no reminder matches %q", identifier)
		if res.Suggestion != "" {
			message = fmt.Sprintf("no reminder matches %q (closest: %q)", identifier, res.Suggestion)
		}
		return nil, 0, noMatch(action, message)
	}
	return reminders, res.Index, nil
}

func stageReminders(toolCtx *Context, reminders []types.Reminder, message string) {
	toolCtx.Queue.Stage("reminder_tool", types.KeyReminders, reminders, message)
}
