package session

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/pkg/types"
)

// PendingQueue stages state deltas produced by mutators during one turn.
// Staging updates the in-memory projection immediately, so readers in
// the same turn see the new value, while the durable append is deferred
// to the end-of-turn flush. The queue is owned exclusively by its turn
// and is not safe for use across turns.
type PendingQueue struct {
	session *types.Session
	entries []types.PendingEntry
}

// NewPendingQueue creates a queue bound to the session.
func NewPendingQueue(session *types.Session) *PendingQueue {
	return &PendingQueue{session: session}
}

// Stage records a deferred state change. The value is visible in the
// session's projected state immediately; the event is appended on
// Flush. The pending list itself is mirrored under the reserved
// transient state key so diagnostics can see in-flight work.
func (q *PendingQueue) Stage(source, key string, value any, message string) {
	now := time.Now().UnixMilli()
	entry := types.PendingEntry{
		Event: types.Event{
			ID:           ulid.Make().String(),
			Author:       source,
			InvocationID: "deferred_persistence",
			Delta:        types.State{key: value},
			Content:      message,
			Time:         now,
		},
		Source: source,
		Time:   now,
	}

	q.session.State[key] = value
	q.entries = append(q.entries, entry)
	q.session.State[types.KeyPendingEvents] = q.entries
}

// Len returns the number of staged entries.
func (q *PendingQueue) Len() int {
	return len(q.entries)
}

// Flush appends the staged events to the store in FIFO order, then one
// cleanup event resetting the pending-list key, so the queue never
// leaks into durable state as anything but an empty list. A failed
// append is logged and skipped; it does not block the remaining
// entries. Returns the number of events appended, cleanup excluded.
func (q *PendingQueue) Flush(ctx context.Context, store sessionstore.Store, bus *event.Bus) int {
	if len(q.entries) == 0 {
		delete(q.session.State, types.KeyPendingEvents)
		return 0
	}

	appended := 0
	failed := 0
	for _, entry := range q.entries {
		if err := store.AppendEvent(ctx, q.session, entry.Event); err != nil {
			failed++
			logging.Warn().
				Err(err).
				Str("sessionID", q.session.ID).
				Str("source", entry.Source).
				Msg("pending event append failed, skipping")
			continue
		}
		appended++
	}

	cleanup := types.Event{
		ID:           ulid.Make().String(),
		Author:       "system",
		InvocationID: "pending_persistence_flush",
		Delta:        types.State{types.KeyPendingEvents: []any{}},
		Time:         time.Now().UnixMilli(),
	}
	if err := store.AppendEvent(ctx, q.session, cleanup); err != nil {
		logging.Warn().Err(err).Str("sessionID", q.session.ID).Msg("pending queue cleanup append failed")
	}

	q.entries = nil

	if bus != nil {
		bus.Publish(event.Event{
			Type: event.StateFlushed,
			Data: event.StateFlushedData{
				SessionID: q.session.ID,
				Appended:  appended,
				Failed:    failed,
			},
		})
	}
	return appended
}
