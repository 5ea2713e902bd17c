package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turnono/sim/pkg/types"
)

// ragUploadRetries bounds transient-error retries within one promotion
// attempt. Promotion itself is never retried across turns.
const ragUploadRetries = 2

// RagService ships transcripts to an external retrieval corpus over
// HTTP. Only the ingestion and query contract of the corpus is assumed.
type RagService struct {
	endpoint string
	client   *http.Client
}

// NewRagService creates a RAG-backed knowledge store client.
func NewRagService(endpoint string) *RagService {
	return &RagService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type ragDocument struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
	Text      string `json:"text"`
}

// AddSession posts the transcript to the ingestion endpoint, retrying
// transient failures with exponential backoff a bounded number of times.
func (r *RagService) AddSession(ctx context.Context, session *types.Session) error {
	text := Transcript(session)
	if text == "" {
		return nil
	}

	body, err := json.Marshal(ragDocument{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("encode rag document: %w", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), ragUploadRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		return r.post(ctx, r.endpoint, body)
	}, policy)
}

// Recall queries the corpus for the user's stored entries.
func (r *RagService) Recall(ctx context.Context, userID, query string) ([]Entry, error) {
	body, err := json.Marshal(map[string]string{"userID": userID, "query": query})
	if err != nil {
		return nil, fmt.Errorf("encode rag query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rag query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rag query: unexpected status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode rag response: %w", err)
	}
	return entries, nil
}

func (r *RagService) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("rag ingest: status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("rag ingest: status %d", resp.StatusCode))
	}
}
