package session

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"testing"
	"time"

	"tradier-streamer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Success(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, `{"stream":{"url":"wss://x","sessionid":"abc"}}`)
	guard := NewGuard()
	mgr := newTestManager(guard, hs.URL, "tok")

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, models.MStreamEndpoint{URL: "wss://x", StreamID: "abc"}, s.Endpoint())
	assert.Equal(t, models.SessionKindMarket, s.Kind())
	assert.Equal(t, StateActive, s.State())
	assert.NotEmpty(t, s.ID())
	assert.True(t, guard.IsActive())
	assert.True(t, mgr.IsActive())
}

func TestNewSession_FailedHandshakeReleasesGuard(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusInternalServerError, "boom")
	guard := NewGuard()
	mgr := newTestManager(guard, hs.URL, "tok")

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	assert.Nil(t, s)

	var failed *HandshakeError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 500, failed.Status)
	assert.Equal(t, "boom", failed.Body)
	assert.Equal(t, models.SessionKindMarket, failed.Kind)

	assert.False(t, guard.IsActive())
	permit, err := guard.Acquire()
	require.NoError(t, err)
	permit.Release()
}

type panickingClient struct{}

func (panickingClient) Do(*http.Request) (*http.Response, error) { panic("transport exploded") }

func TestNewSession_PanicInHandshakeReleasesGuard(t *testing.T) {
	guard := NewGuard()
	mgr := newTestManager(guard, "http://unused", "tok", WithHTTPClient(panickingClient{}))

	assert.PanicsWithValue(t, "transport exploded", func() {
		mgr.NewSession(context.Background(), models.SessionKindMarket)
	})
	assert.False(t, guard.IsActive())

	permit, err := guard.Acquire()
	require.NoError(t, err)
	permit.Release()
}

// openAndDrop opens a session and returns without closing it
//
//go:noinline
func openAndDrop(t *testing.T, mgr *Manager) {
	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	require.Equal(t, StateActive, s.State())
}

func TestSession_DroppedWithoutCloseIsReleased(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	guard := NewGuard()
	mgr := newTestManager(guard, hs.URL, "tok")

	openAndDrop(t, mgr)

	require.Eventually(t, func() bool {
		runtime.GC()
		return !guard.IsActive()
	}, 5*time.Second, 10*time.Millisecond)

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	s.Close()
}

func TestNewSession_OtherFailuresReleaseGuard(t *testing.T) {
	malformed := newHandshakeServer(t, http.StatusOK, "{}")

	cases := map[string]*Manager{
		"missing token": newTestManager(NewGuard(), malformed.URL, ""),
		"malformed":     newTestManager(NewGuard(), malformed.URL, "tok"),
		"network":       newTestManager(NewGuard(), "http://unused", "tok", WithHTTPClient(failingClient{err: errors.New("refused")})),
	}
	for name, mgr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
			require.Error(t, err)
			assert.False(t, mgr.IsActive())
		})
	}
}

func TestNewSession_SecondWhileActiveFails(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	mgr := newTestManager(NewGuard(), hs.URL, "tok")

	first, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = mgr.NewSession(context.Background(), models.SessionKindAccount)
		assert.ErrorIs(t, err, ErrAlreadyActive)
	}
	// Contention never reaches the server
	assert.Equal(t, int32(1), hs.requests.Load())

	first.Close()
	second, err := mgr.NewSession(context.Background(), models.SessionKindAccount)
	require.NoError(t, err)
	second.Close()
}

func TestNewSession_ConcurrentCallersExactlyOneWins(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	mgr := newTestManager(NewGuard(), hs.URL, "tok")

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		sessions = make(chan *Session, 2)
		errs     = make(chan error, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
			if err != nil {
				errs <- err
				return
			}
			sessions <- s
		}()
	}
	close(start)
	wg.Wait()
	close(sessions)
	close(errs)

	require.Len(t, sessions, 1)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, <-errs, ErrAlreadyActive)
	(<-sessions).Close()
	assert.False(t, mgr.IsActive())
}

func TestSession_SequentialCycles(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	mgr := newTestManager(NewGuard(), hs.URL, "tok")

	for i := 0; i < 25; i++ {
		s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
		require.NoError(t, err, "cycle %d", i)
		s.Close()
	}
	assert.False(t, mgr.IsActive())
}

func TestSession_CloseIsIdempotentAndKeepsAccessors(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	guard := NewGuard()
	mgr := newTestManager(guard, hs.URL, "tok")

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	s.Close()
	assert.Equal(t, StateReleased, s.State())

	other, err := guard.Acquire()
	require.NoError(t, err)

	// Closing again must not free the new holder
	s.Close()
	assert.True(t, guard.IsActive())
	assert.Equal(t, "abc", s.Endpoint().StreamID)
	other.Release()
}

func TestSession_IsExpiredIsAdvisory(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))

	now := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mgr := newTestManager(NewGuard(), hs.URL, "tok", WithClock(clock), WithTTL(time.Minute))

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, now, s.CreatedAt())
	assert.False(t, s.IsExpired())

	now = now.Add(time.Minute)
	assert.False(t, s.IsExpired())

	now = now.Add(time.Second)
	assert.True(t, s.IsExpired())
	assert.Equal(t, StateActive, s.State())
	assert.True(t, mgr.IsActive())
}

func TestSession_DefaultTTL(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))

	now := time.Now()
	mgr := newTestManager(NewGuard(), hs.URL, "tok", WithClock(func() time.Time { return now }))

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	defer s.Close()

	now = now.Add(DefaultTTL + time.Nanosecond)
	assert.True(t, s.IsExpired())
}

func TestSession_RecordsLifecycle(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x?sessionid=abcdefgh", "abcdefgh"))
	store := newMemoryStore()
	mgr := newTestManager(NewGuard(), hs.URL, "tok", WithStore(store))

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	record := store.records[0]
	assert.Equal(t, s.ID(), record.ID)
	assert.Equal(t, models.SessionKindMarket, record.Kind)
	assert.NotContains(t, record.StreamURL, "abcdefgh")
	assert.NotEqual(t, "abcdefgh", record.StreamID)

	s.Close()
	assert.Contains(t, store.released, s.ID())
}

func TestSession_StoreFailureDoesNotFailSession(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	store := newMemoryStore()
	store.failWith = errors.New("disk full")
	mgr := newTestManager(NewGuard(), hs.URL, "tok", WithStore(store))

	s, err := mgr.NewSession(context.Background(), models.SessionKindMarket)
	require.NoError(t, err)
	s.Close()
	assert.False(t, mgr.IsActive())
}

func TestNewSession_CancelledContext(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))
	mgr := newTestManager(NewGuard(), hs.URL, "tok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.NewSession(ctx, models.SessionKindMarket)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, mgr.IsActive())
}
