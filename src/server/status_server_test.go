package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus struct{ status models.MStreamStatus }

func (f *fixedStatus) GetStatus() *models.MStreamStatus {
	snapshot := f.status
	return &snapshot
}

type listStore struct {
	records   []models.MSessionRecord
	err       error
	lastLimit int
}

func (s *listStore) Initialize() error                          { return nil }
func (s *listStore) RecordSession(*models.MSessionRecord) error { return nil }
func (s *listStore) MarkReleased(string, time.Time) error       { return nil }
func (s *listStore) Close() error                               { return nil }
func (s *listStore) ListRecent(limit int) ([]models.MSessionRecord, error) {
	s.lastLimit = limit
	return s.records, s.err
}

func newTestServer(status *fixedStatus, store *listStore) *StatusServer {
	cfg := &models.MConfig{Host: "127.0.0.1", Port: 8090, LogLevel: "INFO"}
	if store == nil {
		return NewStatusServer(cfg, logger.NewNopLogger(), status, nil)
	}
	return NewStatusServer(cfg, logger.NewNopLogger(), status, store)
}

func get(t *testing.T, s *StatusServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// -----------------------------------------------------------------------------

func TestStatusServer_Health(t *testing.T) {
	s := newTestServer(&fixedStatus{status: models.MStreamStatus{Running: true, SessionActive: true}}, nil)

	rec := get(t, s, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","running":true,"session_active":true}`, rec.Body.String())
}

func TestStatusServer_Status(t *testing.T) {
	at := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	s := newTestServer(&fixedStatus{status: models.MStreamStatus{
		Running:     true,
		Kind:        models.SessionKindMarket,
		Symbols:     []string{"SPY"},
		Frames:      12,
		LastEventAt: &at,
	}}, nil)

	rec := get(t, s, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.MStreamStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(12), got.Frames)
	assert.Equal(t, []string{"SPY"}, got.Symbols)
	require.NotNil(t, got.LastEventAt)
	assert.True(t, at.Equal(*got.LastEventAt))
}

func TestStatusServer_SessionsWithoutStore(t *testing.T) {
	rec := get(t, newTestServer(&fixedStatus{}, nil), "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStatusServer_Sessions(t *testing.T) {
	store := &listStore{records: []models.MSessionRecord{
		{ID: "s-1", Kind: models.SessionKindAccount, CreatedAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)},
	}}
	s := newTestServer(&fixedStatus{}, store)

	rec := get(t, s, "/api/sessions?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.lastLimit)

	var got []models.MSessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].ID)

	rec = get(t, s, "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, store.lastLimit)
}

func TestStatusServer_SessionsBadLimit(t *testing.T) {
	for _, q := range []string{"abc", "0", "-1"} {
		rec := get(t, newTestServer(&fixedStatus{}, &listStore{}), "/api/sessions?limit="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestStatusServer_SessionsStoreError(t *testing.T) {
	rec := get(t, newTestServer(&fixedStatus{}, &listStore{err: errors.New("locked")}), "/api/sessions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestStatusServer_UnknownRoute(t *testing.T) {
	rec := get(t, newTestServer(&fixedStatus{}, nil), "/api/orders")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
