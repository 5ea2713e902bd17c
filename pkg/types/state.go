// Package types provides the core data types for the sim-guide engine.
package types

import "strings"

// Namespace prefixes for state keys. The prefix decides the scope and
// persistence class of a key:
//
//   - profile: user-scoped, persists across sessions for that user
//   - system:  global, shared across all users
//   - temp:    request-scoped bookkeeping, ignored across sessions
//
// Unprefixed keys are session-local counters and flags.
const (
	PrefixProfile = "profile:"
	PrefixSystem  = "system:"
	PrefixTemp    = "temp:"
)

// Well-known state keys.
const (
	KeyMigrationVersion = "migration_version"
	KeyReminders        = "profile:reminders"
	KeyPendingEvents    = "_pending_persistence_events"
	KeySessionStart     = "session_start_time"
	KeyIsNewSession     = "is_new_session"
	KeyTurnCount        = "conversation_turn_count"
	KeyRequestCounter   = "request_counter"
	KeyIsFirstSession   = "is_first_session"
	KeyLastResponseTime = "last_response_timestamp"
	KeyLastSummaryTime  = "last_summary_time"
)

// State is the flattened, last-write-wins projection of all event deltas
// for a session. Values are arbitrary JSON-serializable data; keys follow
// the namespace convention above.
type State map[string]any

// Clone returns a shallow copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge applies a delta on top of the state, later wins on key collision.
func (s State) Merge(delta State) {
	for k, v := range delta {
		s[k] = v
	}
}

// Has reports whether the key is present.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// GetString returns the string value at key, or fallback.
func (s State) GetString(key, fallback string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return fallback
}

// GetInt returns the integer value at key, or fallback. JSON round-trips
// store numbers as float64, so both forms are accepted.
func (s State) GetInt(key string, fallback int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// GetFloat returns the numeric value at key, or fallback.
func (s State) GetFloat(key string, fallback float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

// MigrationVersion returns the stored schema version, zero when unset.
func (s State) MigrationVersion() int {
	return s.GetInt(KeyMigrationVersion, 0)
}

// Namespace returns all keys under the given prefix with the prefix
// stripped. An empty prefix selects the unprefixed session-local keys.
func (s State) Namespace(prefix string) State {
	out := make(State)
	for k, v := range s {
		if prefix == "" {
			if !strings.Contains(k, ":") {
				out[k] = v
			}
			continue
		}
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// Profile returns the user-scoped keys, prefix stripped.
func (s State) Profile() State { return s.Namespace(PrefixProfile) }

// System returns the global keys, prefix stripped.
func (s State) System() State { return s.Namespace(PrefixSystem) }

// Temp returns the request-scoped keys, prefix stripped.
func (s State) Temp() State { return s.Namespace(PrefixTemp) }

// Local returns the unprefixed session-local keys.
func (s State) Local() State { return s.Namespace("") }
