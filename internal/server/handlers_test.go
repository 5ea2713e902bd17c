package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/internal/memory"
	"github.com/turnono/sim/internal/migrate"
	"github.com/turnono/sim/internal/session"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/internal/storage"
	"github.com/turnono/sim/internal/tools"
	"github.com/turnono/sim/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		AppID: "sim-guide",
		DefaultProfile: types.State{
			"name":      "Abdullah",
			"timezone":  "UTC+2",
			"reminders": []any{},
		},
		DefaultSystem: types.State{"version": "1.0.0"},
		Memory:        config.Memory{Backend: "inmemory"},
	}

	store := sessionstore.NewFileStore(storage.New(t.TempDir()))
	registry := migrate.New(cfg.ProfileDefaults(), cfg.SystemDefaults())
	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	mem, err := memory.NewService(cfg.Memory)
	require.NoError(t, err)

	svc := session.NewService(cfg, store, registry, bus)
	return New(DefaultConfig(), cfg, svc, tools.NewRegistry(), mem, bus, nil)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func createSession(t *testing.T, s *Server, userID string) string {
	t.Helper()
	rec, body := do(t, s, http.MethodPost, "/session", fmt.Sprintf(`{"userID": %q}`, userID))
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := body["session"].(map[string]any)
	return sess["id"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}

func TestCreateSession_SeedsStateAndIsIdempotent(t *testing.T) {
	s := newTestServer(t)

	rec, body := do(t, s, http.MethodPost, "/session", `{"userID": "u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, body["isNew"])

	sess := body["session"].(map[string]any)
	state := sess["state"].(map[string]any)
	require.Equal(t, "Abdullah", state["profile:name"])
	require.Equal(t, "1.0.0", state["system:version"])

	// Same id again: found, not recreated.
	id := sess["id"].(string)
	rec, body = do(t, s, http.MethodPost, "/session", fmt.Sprintf(`{"userID": "u1", "sessionID": %q}`, id))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["isNew"])
}

func TestCreateSession_MissingUserID(t *testing.T) {
	s := newTestServer(t)
	rec, _ := do(t, s, http.MethodPost, "/session", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec, _ := do(t, s, http.MethodGet, "/session/nope?userID=u1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage_RunsTurns(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "u1")

	rec, body := do(t, s, http.MethodPost, "/session/"+id+"/message?userID=u1", `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Noted: hello", body["reply"])
	require.Equal(t, float64(1), body["turn"])

	rec, body = do(t, s, http.MethodPost, "/session/"+id+"/message?userID=u1", `{"message": "again"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), body["turn"])

	// The turn counters were flushed durably.
	rec, body = do(t, s, http.MethodGet, "/session/"+id+"?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := body["state"].(map[string]any)
	require.Equal(t, float64(2), state["conversation_turn_count"])
}

func TestReminderLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "u1")
	base := "/session/" + id + "/reminder"

	rec, body := do(t, s, http.MethodPost, base+"?userID=u1", `{"text": "buy milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])

	rec, _ = do(t, s, http.MethodPost, base+"?userID=u1", `{"text": "call mom"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, s, http.MethodGet, base+"?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	require.Equal(t, float64(2), data["active"])

	rec, body = do(t, s, http.MethodPatch, base+"/1?userID=u1", `{"text": "buy oat milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "buy milk", body["data"].(map[string]any)["previous"])

	rec, _ = do(t, s, http.MethodPost, base+"/milk/complete?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodDelete, base+"/last?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, s, http.MethodGet, base+"?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = body["data"].(map[string]any)
	require.Equal(t, float64(0), data["active"])
	require.Equal(t, float64(1), data["completed"])
}

func TestReminderMiss_Is404WithResult(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "u1")
	base := "/session/" + id + "/reminder"

	_, _ = do(t, s, http.MethodPost, base+"?userID=u1", `{"text": "buy milk"}`)

	rec, body := do(t, s, http.MethodDelete, base+"/walk+dog?userID=u1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", body["status"])
}

func TestPreferenceEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "u1")
	base := "/session/" + id + "/preferences"

	rec, body := do(t, s, http.MethodPut, base+"?userID=u1", `{"name": "timezone", "value": "UTC+3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])

	rec, body = do(t, s, http.MethodGet, base+"?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := body["data"].(map[string]any)["preferences"].(map[string]any)
	require.Equal(t, "UTC+3", prefs["timezone"])
	require.Equal(t, "Abdullah", prefs["name"])

	rec, _ = do(t, s, http.MethodPut, base+"?userID=u1", `{"name": "", "value": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "u1")

	rec, body := do(t, s, http.MethodGet, "/session/"+id+"/summary?userID=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body["status"])
	require.NotEmpty(t, body["data"].(map[string]any)["duration"])
}

func TestRecallMemory_EmptyStore(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/memory?userID=u1&query=milk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, body["entries"])
}
