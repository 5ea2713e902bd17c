// Package memory provides the long-term knowledge store collaborators.
// The engine treats the store as best-effort: promotion runs off the
// response path and a failed upload is dropped for that turn.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/pkg/types"
)

// Service is the narrow knowledge store interface the engine consumes.
type Service interface {
	// AddSession ingests the session's transcript for cross-session
	// retrieval.
	AddSession(ctx context.Context, session *types.Session) error

	// Recall returns stored entries for the user matching the query.
	Recall(ctx context.Context, userID, query string) ([]Entry, error)
}

// Entry is one stored piece of session content.
type Entry struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
	Text      string `json:"text"`
	Time      int64  `json:"time"`
}

// NewService selects the backend from configuration. The choice is made
// once at startup; components receive the Service, never the config.
func NewService(cfg config.Memory) (Service, error) {
	switch cfg.Backend {
	case "", "inmemory":
		return NewInMemory(), nil
	case "rag":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("rag memory backend requires an endpoint")
		}
		return NewRagService(cfg.Endpoint), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

// Transcript flattens a session's event log into ingestible text. Events
// without content (pure state deltas) are skipped.
func Transcript(session *types.Session) string {
	var b strings.Builder
	for _, ev := range session.Events {
		if ev.Content == "" {
			continue
		}
		if ev.Author != "" {
			b.WriteString(ev.Author)
			b.WriteString(": ")
		}
		b.WriteString(ev.Content)
		b.WriteString("\n")
	}
	return b.String()
}
