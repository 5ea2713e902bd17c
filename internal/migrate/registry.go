// Package migrate computes forward-only schema migrations for session
// state. Migrations are totally ordered steps; each step only ever adds
// keys that are absent, so applying a migration delta can never destroy
// existing values.
package migrate

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/turnono/sim/pkg/types"
)

// CurrentVersion is the schema version new and migrated sessions end at.
const CurrentVersion = 3

// StepFunc computes the additions a step wants to make. It is a pure
// function of the existing state and must not emit keys already present.
type StepFunc func(existing types.State) types.State

// Step is one ordered migration. Step v applies to any session whose
// stored version is below v.
type Step struct {
	Version int
	Name    string
	Run     StepFunc
}

// Registry holds the ordered migration schedule.
type Registry struct {
	steps []Step
}

// New builds the registry. The profile and system defaults come from
// configuration; steps that seed defaults read from them.
func New(profileDefaults, systemDefaults types.State) *Registry {
	return &Registry{steps: []Step{
		{
			Version: 1,
			Name:    "seed_profile_defaults",
			Run:     seedStep(types.PrefixProfile, profileDefaults, types.KeyReminders),
		},
		{
			Version: 2,
			Name:    "rename_legacy_namespaces",
			Run: combine(
				renameStep(map[string]string{
					"user:name":                    "profile:name",
					"user:timezone":                "profile:timezone",
					"user:theme_preference":        "profile:theme_preference",
					"user:notification_preference": "profile:notification_preference",
					"user:focus_areas":             "profile:focus_areas",
					"user:reminders":               "profile:reminders",
					"app:version":                  "system:version",
					"app:last_updated":             "system:last_updated",
				}),
				// Preferences introduced alongside the namespace move;
				// sessions already past v1 never saw them seeded.
				pickStep(profileDefaults, "profile:language_preference", "profile:conversation_style"),
			),
		},
		{
			Version: 3,
			Name:    "seed_system_defaults",
			Run:     seedStep(types.PrefixSystem, systemDefaults),
		},
	}}
}

// Steps returns the ordered schedule.
func (r *Registry) Steps() []Step {
	return r.steps
}

// ComputeDelta runs every step v with current < v <= target and merges
// the additions. Keys already present in the existing state are dropped
// even if a step emits them, which keeps every step independently
// idempotent regardless of authoring mistakes.
func (r *Registry) ComputeDelta(current, target int, existing types.State) types.State {
	delta := make(types.State)
	for _, step := range r.steps {
		if step.Version <= current || step.Version > target {
			continue
		}
		for k, v := range step.Run(existing) {
			if existing.Has(k) {
				continue
			}
			delta[k] = v
		}
	}
	return delta
}

// Migrate brings the session to CurrentVersion. It returns the migration
// event to append, or nil when the session is already up to date. The
// version bump rides in the same event as the migration keys, so a
// session can never record the new version without the accompanying
// data.
func (r *Registry) Migrate(session *types.Session) *types.Event {
	stored := session.State.MigrationVersion()
	if stored >= CurrentVersion {
		return nil
	}

	delta := r.ComputeDelta(stored, CurrentVersion, session.State)
	delta[types.KeyMigrationVersion] = CurrentVersion

	return &types.Event{
		ID:           ulid.Make().String(),
		Author:       "system",
		InvocationID: "schema_migration",
		Delta:        delta,
		Content:      "Session state migrated",
		Time:         time.Now().UnixMilli(),
	}
}

// seedStep emits every default key absent from the existing state,
// prefixing unqualified names with the given namespace. Keys listed in
// skip are owned by another step and left alone.
func seedStep(prefix string, defaults types.State, skip ...string) StepFunc {
	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}
	return func(existing types.State) types.State {
		delta := make(types.State)
		for k, v := range defaults {
			key := k
			if !hasNamespace(key) {
				key = prefix + key
			}
			if skipped[key] || existing.Has(key) {
				continue
			}
			delta[key] = v
		}
		return delta
	}
}

// pickStep seeds the named keys from the defaults when absent. Default
// keys may be stored with or without the profile prefix.
func pickStep(defaults types.State, keys ...string) StepFunc {
	return func(existing types.State) types.State {
		delta := make(types.State)
		for _, key := range keys {
			if existing.Has(key) {
				continue
			}
			v, ok := defaults[key]
			if !ok {
				v, ok = defaults[strings.TrimPrefix(key, types.PrefixProfile)]
			}
			if ok {
				delta[key] = v
			}
		}
		return delta
	}
}

// combine runs several step functions as one step, merging their
// additions in order.
func combine(steps ...StepFunc) StepFunc {
	return func(existing types.State) types.State {
		delta := make(types.State)
		for _, step := range steps {
			for k, v := range step(existing) {
				delta[k] = v
			}
		}
		return delta
	}
}

// renameStep copies each old key's value to its new name when the old
// key is present and the new one absent. Old keys are left untouched;
// readers treat them as dead once this step has run.
func renameStep(pairs map[string]string) StepFunc {
	return func(existing types.State) types.State {
		delta := make(types.State)
		for oldKey, newKey := range pairs {
			if existing.Has(oldKey) && !existing.Has(newKey) {
				delta[newKey] = existing[oldKey]
			}
		}
		return delta
	}
}

func hasNamespace(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return true
		}
	}
	return false
}
