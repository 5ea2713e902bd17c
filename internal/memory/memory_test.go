package memory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/pkg/types"
)

func promotableSession() *types.Session {
	return &types.Session{
		ID:     "s1",
		UserID: "u1",
		AppID:  "sim-guide",
		Events: []types.Event{
			{Author: "user", Content: "I want to plan my week"},
			{Author: "agent", Content: "Let's start with your goals"},
		},
		State: types.State{types.KeyTurnCount: 3},
	}
}

func TestNewService_Factory(t *testing.T) {
	svc, err := NewService(config.Memory{Backend: "inmemory"})
	require.NoError(t, err)
	require.IsType(t, &InMemory{}, svc)

	svc, err = NewService(config.Memory{Backend: "rag", Endpoint: "http://localhost:7000"})
	require.NoError(t, err)
	require.IsType(t, &RagService{}, svc)

	_, err = NewService(config.Memory{Backend: "rag"})
	require.Error(t, err)

	_, err = NewService(config.Memory{Backend: "bogus"})
	require.Error(t, err)
}

func TestTranscript_SkipsDeltaOnlyEvents(t *testing.T) {
	sess := promotableSession()
	sess.Events = append(sess.Events, types.Event{Author: "system", Delta: types.State{"k": 1}})

	text := Transcript(sess)
	require.Contains(t, text, "user: I want to plan my week")
	require.Contains(t, text, "agent: Let's start with your goals")
	require.NotContains(t, text, "system")
}

func TestInMemory_AddAndRecall(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()

	require.NoError(t, m.AddSession(ctx, promotableSession()))

	entries, err := m.Recall(ctx, "u1", "plan")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "s1", entries[0].SessionID)

	none, err := m.Recall(ctx, "u1", "unrelated")
	require.NoError(t, err)
	require.Empty(t, none)

	other, err := m.Recall(ctx, "someone-else", "")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestRagService_AddSessionPostsDocument(t *testing.T) {
	var got ragDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, decodeJSON(r, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewRagService(srv.URL)
	require.NoError(t, svc.AddSession(context.Background(), promotableSession()))
	require.Equal(t, "s1", got.SessionID)
	require.Contains(t, got.Text, "plan my week")
}

func TestRagService_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewRagService(srv.URL)
	require.NoError(t, svc.AddSession(context.Background(), promotableSession()))
	require.Equal(t, int32(3), calls.Load())
}

func TestRagService_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewRagService(srv.URL)
	require.Error(t, svc.AddSession(context.Background(), promotableSession()))
	require.Equal(t, int32(1), calls.Load())
}

type recordingService struct {
	mu       sync.Mutex
	sessions []string
	err      error
	done     chan struct{}
}

func (r *recordingService) AddSession(ctx context.Context, s *types.Session) error {
	r.mu.Lock()
	r.sessions = append(r.sessions, s.ID)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
	return r.err
}

func (r *recordingService) Recall(ctx context.Context, userID, query string) ([]Entry, error) {
	return nil, nil
}

func TestPromoter_PromotesQualifyingSessions(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	svc := &recordingService{done: make(chan struct{})}
	p := NewPromoter(svc, bus)
	defer p.Stop()

	bus.PublishSync(event.Event{
		Type: event.TurnCompleted,
		Data: event.TurnCompletedData{Session: promotableSession(), Message: "ok"},
	})

	<-svc.done
	require.Equal(t, []string{"s1"}, svc.sessions)
}

func TestPromoter_SkipsNonQualifyingSessions(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	svc := &recordingService{}
	p := NewPromoter(svc, bus)
	defer p.Stop()

	sess := promotableSession()
	sess.State = types.State{types.KeyTurnCount: 1}
	bus.PublishSync(event.Event{
		Type: event.TurnCompleted,
		Data: event.TurnCompletedData{Session: sess, Message: "ok"},
	})

	require.Empty(t, svc.sessions)
}

func TestPromoter_UploadFailureIsSwallowed(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	svc := &recordingService{err: errors.New("corpus unavailable"), done: make(chan struct{})}
	p := NewPromoter(svc, bus)
	defer p.Stop()

	var promoted atomic.Int32
	bus.Subscribe(event.MemoryPromoted, func(event.Event) { promoted.Add(1) })

	// Must not panic or propagate anywhere.
	bus.PublishSync(event.Event{
		Type: event.TurnCompleted,
		Data: event.TurnCompletedData{Session: promotableSession(), Message: "ok"},
	})

	<-svc.done
	require.Zero(t, promoted.Load())
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
