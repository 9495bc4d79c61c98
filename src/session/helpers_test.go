package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
)

// staticCredentials implements interfaces.ICredentialsProvider
type staticCredentials struct {
	baseURL string
	token   string
}

func (c staticCredentials) GetBaseURL() string { return c.baseURL }

func (c staticCredentials) GetAccessToken() (string, bool) { return c.token, c.token != "" }

// -----------------------------------------------------------------------------

// handshakeServer answers session requests with a fixed status and body
type handshakeServer struct {
	*httptest.Server
	requests atomic.Int32

	mu   sync.Mutex
	last *http.Request
}

func newHandshakeServer(t *testing.T, status int, body string) *handshakeServer {
	t.Helper()
	hs := &handshakeServer{}
	hs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hs.requests.Add(1)
		hs.mu.Lock()
		hs.last = r.Clone(r.Context())
		hs.mu.Unlock()

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(hs.Close)
	return hs
}

func (hs *handshakeServer) lastRequest() *http.Request {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.last
}

func streamBody(url, id string) string {
	data, _ := json.Marshal(map[string]any{"stream": models.MStreamEndpoint{URL: url, StreamID: id}})
	return string(data)
}

// -----------------------------------------------------------------------------

// memoryStore implements interfaces.ISessionStore in memory
type memoryStore struct {
	mu       sync.Mutex
	records  []models.MSessionRecord
	released map[string]time.Time
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{released: map[string]time.Time{}}
}

func (s *memoryStore) Initialize() error { return nil }

func (s *memoryStore) RecordSession(record *models.MSessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *memoryStore) MarkReleased(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.released[id] = at
	return nil
}

func (s *memoryStore) ListRecent(limit int) ([]models.MSessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MSessionRecord(nil), s.records...), nil
}

func (s *memoryStore) Close() error { return nil }

// -----------------------------------------------------------------------------

func newTestManager(guard *Guard, baseURL, token string, opts ...ManagerOption) *Manager {
	return NewManager(guard, staticCredentials{baseURL: baseURL, token: token}, logger.NewNopLogger(), "test", opts...)
}
