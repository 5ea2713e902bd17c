package types

// Session identifies a conversation for a user within an app. The event
// log is append-only; State is the ordered fold of all event deltas and is
// owned by the session store.
type Session struct {
	ID     string      `json:"id"`
	UserID string      `json:"userID"`
	AppID  string      `json:"appID"`
	Events []Event     `json:"events"`
	State  State       `json:"state"`
	Time   SessionTime `json:"time"`
}

// SessionTime contains timestamps for a session, in unix milliseconds.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// Event is an immutable record of a state mutation. Appending an event is
// the only legal way to change persisted state.
type Event struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	InvocationID string `json:"invocationID"`
	Delta        State  `json:"delta,omitempty"`
	Content      string `json:"content,omitempty"`
	Time         int64  `json:"time"`
}

// ProjectState folds the event deltas in order, later wins on collision.
func ProjectState(events []Event) State {
	state := make(State)
	for _, ev := range events {
		state.Merge(ev.Delta)
	}
	return state
}

// PendingEntry is a staged state change produced by a mutator during the
// current turn. Entries live under the reserved transient state key and
// are drained by the end-of-turn flush.
type PendingEntry struct {
	Event  Event  `json:"event"`
	Source string `json:"source"`
	Time   int64  `json:"time"`
}
