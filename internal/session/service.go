// Package session manages the session lifecycle: find-or-create
// bootstrap, schema migration on fetch, deferred persistence, and the
// per-turn pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/internal/migrate"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/pkg/types"
)

// Service owns session bootstrap and migration. One instance is built
// at startup and shared; it holds no per-session mutable state.
type Service struct {
	store    sessionstore.Store
	registry *migrate.Registry
	bus      *event.Bus

	appID           string
	profileDefaults types.State
	systemDefaults  types.State
}

// NewService creates the session service.
func NewService(cfg *config.Config, store sessionstore.Store, registry *migrate.Registry, bus *event.Bus) *Service {
	return &Service{
		store:           store,
		registry:        registry,
		bus:             bus,
		appID:           cfg.AppID,
		profileDefaults: cfg.ProfileDefaults(),
		systemDefaults:  cfg.SystemDefaults(),
	}
}

// FindOrCreate resolves the user's session. A given session id is looked
// up directly; a miss or lookup failure falls back to creation rather
// than erroring. Without an id the most recent session wins. Existing
// sessions are migrated opportunistically so long-lived sessions
// self-heal on fetch. Creation failures are fatal to the request and
// surfaced.
func (s *Service) FindOrCreate(ctx context.Context, userID, sessionID string) (*types.Session, bool, error) {
	if sessionID != "" {
		sess, err := s.store.Get(ctx, s.appID, userID, sessionID)
		if err == nil {
			s.migrateExisting(ctx, sess)
			return sess, false, nil
		}
		if !errors.Is(err, sessionstore.ErrNotFound) {
			logging.Warn().Err(err).Str("sessionID", sessionID).Msg("session lookup failed, creating a new session")
		}
	} else {
		sessions, err := s.store.List(ctx, s.appID, userID)
		if err != nil {
			logging.Warn().Err(err).Str("userID", userID).Msg("session list failed, creating a new session")
		} else if len(sessions) > 0 {
			sess := sessions[0]
			s.migrateExisting(ctx, sess)
			return sess, false, nil
		}
	}

	sess, err := s.create(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

func (s *Service) create(ctx context.Context, userID string) (*types.Session, error) {
	sess, err := s.store.Create(ctx, s.appID, userID)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", userID, err)
	}

	delta := s.initialDelta(sess.State)
	if len(delta) > 0 {
		initEvent := types.Event{
			ID:           ulid.Make().String(),
			Author:       "system",
			InvocationID: "session_initialization",
			Delta:        delta,
			Content:      "Session initialized with default state",
			Time:         time.Now().UnixMilli(),
		}
		if err := s.store.AppendEvent(ctx, sess, initEvent); err != nil {
			return nil, fmt.Errorf("initialize session %s: %w", sess.ID, err)
		}
	}

	logging.Info().
		Str("sessionID", sess.ID).
		Str("userID", userID).
		Int("seededKeys", len(delta)).
		Msg("session created")

	s.bus.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{Session: sess},
	})
	return sess, nil
}

// initialDelta stages every default profile/system key absent from the
// state, session bookkeeping, and whatever the migration schedule would
// add, all in one event. Every key is guarded on absence, so
// re-initializing an already-populated session produces an empty delta
// and no event.
func (s *Service) initialDelta(state types.State) types.State {
	delta := make(types.State)
	seed := func(defaults types.State) {
		for k, v := range defaults {
			if !state.Has(k) {
				delta[k] = v
			}
		}
	}
	seed(s.profileDefaults)
	seed(s.systemDefaults)

	if !state.Has(types.KeySessionStart) {
		delta[types.KeySessionStart] = float64(time.Now().Unix())
	}
	if !state.Has(types.KeyIsNewSession) {
		delta[types.KeyIsNewSession] = true
	}

	for k, v := range s.registry.ComputeDelta(state.MigrationVersion(), migrate.CurrentVersion, state) {
		if _, staged := delta[k]; !staged {
			delta[k] = v
		}
	}
	if len(delta) > 0 || state.MigrationVersion() < migrate.CurrentVersion {
		delta[types.KeyMigrationVersion] = migrate.CurrentVersion
	}
	return delta
}

// migrateExisting brings a fetched session up to the current schema
// version. Failures are logged, not surfaced: the session remains
// usable and heals on a later fetch.
func (s *Service) migrateExisting(ctx context.Context, sess *types.Session) {
	from := sess.State.MigrationVersion()
	ev := s.registry.Migrate(sess)
	if ev == nil {
		return
	}

	if err := s.store.AppendEvent(ctx, sess, *ev); err != nil {
		logging.Warn().Err(err).Str("sessionID", sess.ID).Msg("migration event append failed")
		return
	}

	logging.Info().
		Str("sessionID", sess.ID).
		Int("fromVersion", from).
		Int("toVersion", migrate.CurrentVersion).
		Msg("session migrated")

	s.bus.Publish(event.Event{
		Type: event.SessionMigrated,
		Data: event.SessionMigratedData{
			SessionID:   sess.ID,
			FromVersion: from,
			ToVersion:   migrate.CurrentVersion,
		},
	})
}

// Get re-reads a session from the store, migrating it if needed.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*types.Session, error) {
	sess, err := s.store.Get(ctx, s.appID, userID, sessionID)
	if err != nil {
		return nil, err
	}
	s.migrateExisting(ctx, sess)
	return sess, nil
}

// List returns the user's sessions, most recent first.
func (s *Service) List(ctx context.Context, userID string) ([]*types.Session, error) {
	return s.store.List(ctx, s.appID, userID)
}

// Store exposes the underlying session store to the turn pipeline.
func (s *Service) Store() sessionstore.Store {
	return s.store
}
