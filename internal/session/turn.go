package session

import (
	"context"
	"fmt"
	"time"

	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/pkg/types"
)

// Responder synthesizes the user-facing reply for a turn. The actual
// language-model runtime lives behind this interface; the engine never
// calls it directly.
type Responder interface {
	Respond(ctx context.Context, session *types.Session, message string) (string, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, session *types.Session, message string) (string, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, session *types.Session, message string) (string, error) {
	return f(ctx, session, message)
}

// Turn is one request's unit of work against a session. Turns for the
// same session must be serialized by the caller; the turn itself holds
// no locks.
type Turn struct {
	Session *types.Session
	Queue   *PendingQueue
	IsNew   bool

	svc     *Service
	started time.Time
}

// BeginTurn bootstraps the session for a request and stages the turn
// bookkeeping counters.
func (s *Service) BeginTurn(ctx context.Context, userID, sessionID string) (*Turn, error) {
	sess, isNew, err := s.FindOrCreate(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	t := &Turn{
		Session: sess,
		Queue:   NewPendingQueue(sess),
		IsNew:   isNew,
		svc:     s,
		started: time.Now(),
	}

	turnCount := sess.State.GetInt(types.KeyTurnCount, 0) + 1
	t.Queue.Stage("system", types.KeyTurnCount, turnCount, "")

	requestCounter := sess.State.GetInt(types.KeyRequestCounter, 0) + 1
	t.Queue.Stage("system", types.KeyRequestCounter, requestCounter, "")

	if turnCount == 1 && !sess.State.Has("profile:last_session") {
		t.Queue.Stage("system", types.KeyIsFirstSession, true, "")
	}
	t.Queue.Stage("system", "profile:last_session", float64(time.Now().Unix()), "")
	t.Queue.Stage("system", types.PrefixTemp+"last_query_timestamp", float64(t.started.Unix()), "")

	return t, nil
}

// RunTurn executes the full turn pipeline: bootstrap, bookkeeping,
// response synthesis, flush, and the turn-completed signal. On a
// responder failure the turn is returned un-flushed alongside the
// error so callers can tell a synthesis failure from a bootstrap one.
func (s *Service) RunTurn(ctx context.Context, userID, sessionID, message string, responder Responder) (*Turn, string, error) {
	t, err := s.BeginTurn(ctx, userID, sessionID)
	if err != nil {
		return nil, "", err
	}

	reply, err := responder.Respond(ctx, t.Session, message)
	if err != nil {
		return t, "", fmt.Errorf("synthesize response for session %s: %w", t.Session.ID, err)
	}

	t.Complete(ctx, message)
	return t, reply, nil
}

// Complete records the response bookkeeping, flushes the pending queue
// and publishes turn.completed for the background promotion consumer.
// The flush tolerates per-entry failures, so Complete itself only fails
// when the turn was never viable.
func (t *Turn) Complete(ctx context.Context, message string) {
	t.Queue.Stage("system", types.KeyLastResponseTime, float64(time.Now().Unix()), "")
	t.Queue.Flush(ctx, t.svc.store, t.svc.bus)

	t.svc.bus.Publish(event.Event{
		Type: event.TurnCompleted,
		Data: event.TurnCompletedData{Session: t.Session, Message: message},
	})
}
