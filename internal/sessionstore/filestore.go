package sessionstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/turnono/sim/internal/storage"
	"github.com/turnono/sim/pkg/types"
)

// FileStore persists sessions as JSON documents, one per session, under
// {app}/{user}/{sessionID}. The document holds the full event log; state
// is re-projected from the log on every load so the log stays the single
// source of truth.
type FileStore struct {
	storage *storage.Storage
}

// NewFileStore creates a FileStore on top of the given storage root.
func NewFileStore(s *storage.Storage) *FileStore {
	return &FileStore{storage: s}
}

type sessionRecord struct {
	ID     string            `json:"id"`
	UserID string            `json:"userID"`
	AppID  string            `json:"appID"`
	Events []types.Event     `json:"events"`
	Time   types.SessionTime `json:"time"`
}

func (r *sessionRecord) toSession() *types.Session {
	return &types.Session{
		ID:     r.ID,
		UserID: r.UserID,
		AppID:  r.AppID,
		Events: r.Events,
		State:  types.ProjectState(r.Events),
		Time:   r.Time,
	}
}

func sessionPath(appID, userID, sessionID string) []string {
	return []string{appID, userID, sessionID}
}

// Get returns the session with its projected state.
func (f *FileStore) Get(ctx context.Context, appID, userID, sessionID string) (*types.Session, error) {
	var rec sessionRecord
	err := f.storage.Get(ctx, sessionPath(appID, userID, sessionID), &rec)
	if err == storage.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return rec.toSession(), nil
}

// List returns the user's sessions, most recently updated first.
func (f *FileStore) List(ctx context.Context, appID, userID string) ([]*types.Session, error) {
	ids, err := f.storage.List(ctx, []string{appID, userID})
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", userID, err)
	}

	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := f.Get(ctx, appID, userID, id)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Time.Updated > sessions[j].Time.Updated
	})
	return sessions, nil
}

// Create allocates a new empty session with a store-assigned id.
func (f *FileStore) Create(ctx context.Context, appID, userID string) (*types.Session, error) {
	now := time.Now().UnixMilli()
	rec := sessionRecord{
		ID:     ulid.Make().String(),
		UserID: userID,
		AppID:  appID,
		Events: []types.Event{},
		Time:   types.SessionTime{Created: now, Updated: now},
	}
	if err := f.storage.Put(ctx, sessionPath(appID, userID, rec.ID), &rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return rec.toSession(), nil
}

// AppendEvent appends the event to the session's log and updates the
// passed session in place with the new projection.
func (f *FileStore) AppendEvent(ctx context.Context, session *types.Session, event types.Event) error {
	path := sessionPath(session.AppID, session.UserID, session.ID)

	var rec sessionRecord
	err := f.storage.Get(ctx, path, &rec)
	if err == storage.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load session %s: %w", session.ID, err)
	}

	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.Time == 0 {
		event.Time = time.Now().UnixMilli()
	}

	rec.Events = append(rec.Events, event)
	rec.Time.Updated = time.Now().UnixMilli()
	if err := f.storage.Put(ctx, path, &rec); err != nil {
		return fmt.Errorf("append event to %s: %w", session.ID, err)
	}

	session.Events = rec.Events
	session.State = types.ProjectState(rec.Events)
	session.Time = rec.Time
	return nil
}
