// Package retention decides whether a session's content is worth
// promoting into the long-term knowledge store. Classification is a
// deterministic, pure function of session state counters and message
// text; it never touches the network.
package retention

import (
	"strings"
	"time"

	"github.com/turnono/sim/pkg/types"
)

// Thresholds for the ordered rule set.
const (
	promoteTurnCount      = 3
	categoryPromoteCount  = 2
	longMessageWords      = 50
	questionMinWords      = 30
	preferenceMinWords    = 15
	longSessionSeconds    = 300
	actionablePromoteHits = 2
)

// categories are the lexical pattern sets scored against the lowercased
// message. A category counts once no matter how many of its markers hit.
var categories = map[string][]string{
	"planning":   {"plan", "goal", "objective", "milestone", "roadmap", "strategy", "next step"},
	"learning":   {"learn", "study", "course", "read about", "understand", "practice", "skill"},
	"decisions":  {"decide", "decision", "choose", "option", "trade-off", "pros and cons", "went with"},
	"work":       {"work", "project", "meeting", "deadline", "client", "team", "career", "job"},
	"growth":     {"habit", "improve", "growth", "health", "routine", "exercise", "meditat"},
	"finance":    {"budget", "invest", "saving", "money", "income", "expense", "wealth"},
	"technology": {"software", "code", "app", " ai ", "model", "automation", "tool", "data"},
	"scheduling": {"tomorrow", "next week", "monday", "tuesday", "wednesday", "thursday", "friday", "weekend", "schedule", "calendar", "o'clock"},
}

// interrogatives mark a question-bearing message.
var interrogatives = []string{"?", "how do", "how can", "what should", "why does", "where can", "when should", "should i"}

// preferenceMarkers are first-person opinion and preference signals.
var preferenceMarkers = []string{"i prefer", "i like", "i love", "i hate", "i want", "i think", "i believe", "i'd rather", "my favorite"}

// actionableMarkers signal concrete intent.
var actionableMarkers = []string{"remind me", "add ", "schedule", "track", "set up", "start", "finish", "complete", "book ", "call ", "email ", "buy "}

// ShouldPromote evaluates the ordered rule set, first true wins. Cheap,
// high-precision checks run before lexical scoring.
func ShouldPromote(session *types.Session, latestMessage string) bool {
	state := session.State
	msg := " " + strings.ToLower(latestMessage) + " "
	words := wordCount(latestMessage)

	// Rule 1: an established conversation is worth keeping.
	if state.GetInt(types.KeyTurnCount, 0) >= promoteTurnCount {
		return true
	}

	// Rule 2: any reminder implies durable user intent.
	if len(types.RemindersFromState(state)) > 0 {
		return true
	}

	// Rule 3: message spans multiple topical categories.
	score := categoryScore(msg)
	if score >= categoryPromoteCount {
		return true
	}

	// Rule 4: long message with at least one category hit.
	if words >= longMessageWords && score >= 1 {
		return true
	}

	// Rule 5: substantive question in an ongoing conversation.
	if hasAny(msg, interrogatives) && state.GetInt(types.KeyTurnCount, 0) >= 2 && words >= questionMinWords {
		return true
	}

	// Rule 6: stated preference or opinion of reasonable length.
	if hasAny(msg, preferenceMarkers) && words >= preferenceMinWords {
		return true
	}

	// Rule 7: long-lived session with more than one turn.
	if sessionDurationSeconds(state) >= longSessionSeconds && state.GetInt(types.KeyTurnCount, 0) >= 2 {
		return true
	}

	// Rule 8: multiple actionable-intent markers.
	if countAny(msg, actionableMarkers) >= actionablePromoteHits {
		return true
	}

	return false
}

// categoryScore returns how many categories have at least one marker in
// the message.
func categoryScore(lowerMsg string) int {
	score := 0
	for _, markers := range categories {
		if hasAny(lowerMsg, markers) {
			score++
		}
	}
	return score
}

func hasAny(msg string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func countAny(msg string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(msg, m) {
			n++
		}
	}
	return n
}

func wordCount(msg string) int {
	return len(strings.Fields(msg))
}

// sessionDurationSeconds derives the session age from the recorded start
// time, zero when the session never recorded one.
func sessionDurationSeconds(state types.State) float64 {
	start := state.GetFloat(types.KeySessionStart, 0)
	if start == 0 {
		return 0
	}
	return float64(time.Now().Unix()) - start
}
