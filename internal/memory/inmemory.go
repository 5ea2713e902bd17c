package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/turnono/sim/pkg/types"
)

// InMemory keeps promoted sessions in process memory. It backs local
// development and tests.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string][]Entry // userID -> entries
}

// NewInMemory creates an empty in-memory knowledge store.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string][]Entry)}
}

// AddSession stores the session transcript under its user.
func (m *InMemory) AddSession(ctx context.Context, session *types.Session) error {
	text := Transcript(session)
	if text == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[session.UserID] = append(m.entries[session.UserID], Entry{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      text,
		Time:      time.Now().UnixMilli(),
	})
	return nil
}

// Recall returns the user's entries containing the query, all entries
// when the query is empty.
func (m *InMemory) Recall(ctx context.Context, userID, query string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(query)
	var out []Entry
	for _, entry := range m.entries[userID] {
		if query == "" || strings.Contains(strings.ToLower(entry.Text), query) {
			out = append(out, entry)
		}
	}
	return out, nil
}
