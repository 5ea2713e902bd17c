package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/turnono/sim/pkg/types"
)

// UpdatePreferenceTool sets a single profile preference.
type UpdatePreferenceTool struct{}

// UpdatePreferenceInput represents the input for the update_preference tool.
type UpdatePreferenceInput struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// NewUpdatePreferenceTool creates a new update_preference tool.
func NewUpdatePreferenceTool() *UpdatePreferenceTool { return &UpdatePreferenceTool{} }

func (t *UpdatePreferenceTool) ID() string { return "update_preference" }

func (t *UpdatePreferenceTool) Description() string {
	return "Updates one of the user's profile preferences."
}

func (t *UpdatePreferenceTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {
				"type": "string",
				"description": "The preference name, e.g. timezone or theme_preference"
			},
			"value": {
				"description": "The new preference value"
			}
		},
		"required": ["name", "value"]
	}`)
}

func (t *UpdatePreferenceTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params UpdatePreferenceInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	name := strings.TrimSpace(strings.TrimPrefix(params.Name, types.PrefixProfile))
	if name == "" {
		return invalid("update_preference", "preference name must not be empty"), nil
	}
	if name == "reminders" {
		return invalid("update_preference", "reminders are managed by the reminder tools"), nil
	}

	key := types.PrefixProfile + name
	if current, ok := toolCtx.Session.State[key]; ok && reflect.DeepEqual(current, params.Value) {
		return success("update_preference", fmt.Sprintf("%s is already set to that value", name), map[string]any{
			"name":    name,
			"changed": false,
		}), nil
	}

	toolCtx.Queue.Stage("preference_tool", key, params.Value, fmt.Sprintf("Updated preference %s", name))

	return success("update_preference", fmt.Sprintf("Updated %s", name), map[string]any{
		"name":    name,
		"value":   params.Value,
		"changed": true,
	}), nil
}

// GetPreferencesTool returns all profile preferences with the namespace
// prefix stripped.
type GetPreferencesTool struct{}

// NewGetPreferencesTool creates a new get_preferences tool.
func NewGetPreferencesTool() *GetPreferencesTool { return &GetPreferencesTool{} }

func (t *GetPreferencesTool) ID() string { return "get_preferences" }

func (t *GetPreferencesTool) Description() string {
	return "Returns the user's profile preferences."
}

func (t *GetPreferencesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *GetPreferencesTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	prefs := toolCtx.Session.State.Profile()
	delete(prefs, "reminders")

	return success("get_preferences", fmt.Sprintf("%d preferences", len(prefs)), map[string]any{
		"preferences": prefs,
	}), nil
}
