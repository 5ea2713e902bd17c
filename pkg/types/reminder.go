package types

// Reminder is a structured item in the user's reminder list, stored as an
// ordered sequence under "profile:reminders". Items are mutated in place
// and never physically reordered; completion is distinct from deletion.
type Reminder struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Priority    string `json:"priority,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
	Completed   bool   `json:"completed"`
}

// RemindersFromState reads the reminder list out of the state projection.
// Earlier deployments stored reminders as plain strings and JSON decoding
// yields []any of maps, so both forms are normalized here, at the read
// boundary.
func RemindersFromState(s State) []Reminder {
	raw, ok := s[KeyReminders]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []Reminder:
		out := make([]Reminder, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]Reminder, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeReminder(item))
		}
		return out
	}
	return nil
}

func normalizeReminder(item any) Reminder {
	switch v := item.(type) {
	case Reminder:
		return v
	case string:
		// Legacy plain-string reminder.
		return Reminder{Text: v}
	case map[string]any:
		r := Reminder{}
		if id, ok := v["id"].(string); ok {
			r.ID = id
		}
		if text, ok := v["text"].(string); ok {
			r.Text = text
		}
		if p, ok := v["priority"].(string); ok {
			r.Priority = p
		}
		switch t := v["createdAt"].(type) {
		case float64:
			r.CreatedAt = int64(t)
		case int64:
			r.CreatedAt = t
		}
		switch t := v["completedAt"].(type) {
		case float64:
			ms := int64(t)
			r.CompletedAt = &ms
		case int64:
			r.CompletedAt = &t
		}
		if c, ok := v["completed"].(bool); ok {
			r.Completed = c
		}
		return r
	}
	return Reminder{}
}

// ReminderTexts projects the list onto its text fields, the shape the
// reference resolver works over.
func ReminderTexts(reminders []Reminder) []string {
	texts := make([]string, len(reminders))
	for i, r := range reminders {
		texts[i] = r.Text
	}
	return texts
}
