package event

import "github.com/turnono/sim/pkg/types"

// SessionCreatedData is the payload for session.created events.
type SessionCreatedData struct {
	Session *types.Session `json:"session"`
}

// SessionMigratedData is the payload for session.migrated events.
type SessionMigratedData struct {
	SessionID   string `json:"sessionID"`
	FromVersion int    `json:"fromVersion"`
	ToVersion   int    `json:"toVersion"`
}

// StateFlushedData is the payload for state.flushed events.
type StateFlushedData struct {
	SessionID string `json:"sessionID"`
	Appended  int    `json:"appended"`
	Failed    int    `json:"failed"`
}

// TurnCompletedData is the payload for turn.completed events. It carries
// everything the background promotion consumer needs so it never reads
// shared mutable state.
type TurnCompletedData struct {
	Session *types.Session `json:"session"`
	Message string         `json:"message"`
}

// MemoryPromotedData is the payload for memory.promoted events.
type MemoryPromotedData struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
}
