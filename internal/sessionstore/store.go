// Package sessionstore defines the session store contract the engine
// depends on, plus a file-backed implementation. The store is the source
// of truth for sessions: it preserves event append order and returns the
// up-to-date state projection on every read.
package sessionstore

import (
	"context"
	"errors"

	"github.com/turnono/sim/pkg/types"
)

// ErrNotFound is returned when the requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Store is the narrow interface the engine requires from a session
// backend.
type Store interface {
	// Get returns the session with its projected state, or ErrNotFound.
	Get(ctx context.Context, appID, userID, sessionID string) (*types.Session, error)

	// List returns the user's sessions, most recently updated first.
	List(ctx context.Context, appID, userID string) ([]*types.Session, error)

	// Create allocates a new empty session. The store assigns the id.
	Create(ctx context.Context, appID, userID string) (*types.Session, error)

	// AppendEvent appends the event to the session's log and folds its
	// delta into the stored state projection. The passed session is
	// updated in place so callers keep read-your-write visibility.
	AppendEvent(ctx context.Context, session *types.Session, event types.Event) error
}
