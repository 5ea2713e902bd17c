package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/pkg/types"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userID is carried as a query parameter on every session endpoint.
func requestUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "userID query parameter is required")
		return "", false
	}
	return userID, true
}

// sessionView is the wire shape of a session. The raw pending-queue
// marker is internal and stripped.
type sessionView struct {
	ID      string      `json:"id"`
	UserID  string      `json:"userID"`
	AppID   string      `json:"appID"`
	State   types.State `json:"state"`
	Events  int         `json:"events"`
	Created int64       `json:"created"`
	Updated int64       `json:"updated"`
}

func viewSession(sess *types.Session) sessionView {
	state := sess.State.Clone()
	delete(state, types.KeyPendingEvents)
	return sessionView{
		ID:      sess.ID,
		UserID:  sess.UserID,
		AppID:   sess.AppID,
		State:   state,
		Events:  len(sess.Events),
		Created: sess.Time.Created,
		Updated: sess.Time.Updated,
	}
}

type createSessionRequest struct {
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID,omitempty"`
}

// createSession finds or creates the user's session. An unknown
// sessionID is not an error; it falls back to creation.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "userID is required")
		return
	}

	sess, isNew, err := s.sessions.FindOrCreate(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "session creation failed")
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"session": viewSession(sess),
		"isNew":   isNew,
	})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	sessions, err := s.sessions.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "session list failed")
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewSession(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, viewSession(sess))
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// sendMessage runs one full turn: bootstrap, bookkeeping, response
// synthesis, flush, and the turn-completed signal the promotion
// consumer listens for.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message is required")
		return
	}

	turn, reply, err := s.sessions.RunTurn(r.Context(), userID, chi.URLParam(r, "sessionID"), req.Message, s.responder)
	if err != nil {
		if turn == nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "session bootstrap failed")
			return
		}
		logging.Error().Err(err).Str("sessionID", turn.Session.ID).Msg("responder failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "response synthesis failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionID": turn.Session.ID,
		"isNew":     turn.IsNew,
		"turn":      turn.Session.State.GetInt(types.KeyTurnCount, 0),
		"reply":     reply,
	})
}
