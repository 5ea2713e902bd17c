package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turnono/sim/internal/memory"
	"github.com/turnono/sim/internal/session"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/internal/tools"
)

// runTool executes one tool against an existing session and flushes the
// staged changes. Tool endpoints operate on a known session; they never
// create one.
func (s *Server) runTool(w http.ResponseWriter, r *http.Request, toolID string, input json.RawMessage) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	sess, err := s.sessions.Get(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if errors.Is(err, sessionstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "session load failed")
		return
	}

	toolCtx := &tools.Context{Session: sess, Queue: session.NewPendingQueue(sess)}
	result, err := s.tools.Execute(r.Context(), toolID, input, toolCtx)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	toolCtx.Queue.Flush(r.Context(), s.sessions.Store(), s.bus)
	writeToolResult(w, result)
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unreadable body")
		return nil, false
	}
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return nil, false
	}
	return body, true
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	s.runTool(w, r, "view_reminders", json.RawMessage(`{}`))
}

func (s *Server) addReminder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.runTool(w, r, "add_reminder", body)
}

func (s *Server) updateReminder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	input := mustJSON(map[string]string{
		"identifier": chi.URLParam(r, "identifier"),
		"text":       req.Text,
	})
	s.runTool(w, r, "update_reminder", input)
}

func (s *Server) completeReminder(w http.ResponseWriter, r *http.Request) {
	input := mustJSON(map[string]string{"identifier": chi.URLParam(r, "identifier")})
	s.runTool(w, r, "complete_reminder", input)
}

func (s *Server) deleteReminder(w http.ResponseWriter, r *http.Request) {
	input := mustJSON(map[string]string{"identifier": chi.URLParam(r, "identifier")})
	s.runTool(w, r, "delete_reminder", input)
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	s.runTool(w, r, "get_preferences", json.RawMessage(`{}`))
}

func (s *Server) updatePreference(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.runTool(w, r, "update_preference", body)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	s.runTool(w, r, "session_summary", json.RawMessage(`{}`))
}

// recallMemory queries the cross-session knowledge store.
func (s *Server) recallMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("query")

	entries, err := s.memory.Recall(r.Context(), userID, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "memory recall failed")
		return
	}
	if entries == nil {
		entries = []memory.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return b
}
