package session

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/utils"

	"github.com/google/uuid"
)

// DefaultTTL is how long a negotiated stream id is considered fresh
const DefaultTTL = 5 * time.Minute

// -----------------------------------------------------------------------------

// State of a Session. Sessions are returned to callers already Active.
type State int32

const (
	StateNegotiating State = iota
	StateActive
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// Session owns the guard permit and the negotiated endpoint.
// Close releases the permit; accessors stay readable afterwards.
type Session struct {
	id        string
	name      string
	kind      models.MSessionKind
	endpoint  models.MStreamEndpoint
	streamURL string
	createdAt time.Time
	ttl       time.Duration
	now       func() time.Time
	logger    *logger.Logger
	store     interfaces.ISessionStore
	permit    *Permit
	cleanup   runtime.Cleanup
	state     atomic.Int32
	closeOnce sync.Once
}

// -----------------------------------------------------------------------------

// ID is the local record id of this session (not the server stream id)
func (s *Session) ID() string { return s.id }

// Kind returns the feed this session was negotiated for
func (s *Session) Kind() models.MSessionKind { return s.kind }

// Endpoint returns the handshake result
func (s *Session) Endpoint() models.MStreamEndpoint { return s.endpoint }

// StreamURL is the URL stream loops dial: the manager's override for this
// kind when one is set, otherwise the handshake URL
func (s *Session) StreamURL() string {
	if s.streamURL != "" {
		return s.streamURL
	}
	return s.endpoint.URL
}

// CreatedAt returns when the handshake completed
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle state
func (s *Session) State() State { return State(s.state.Load()) }

// -----------------------------------------------------------------------------

// IsExpired reports whether the session is older than its TTL. It is advisory
// only: nothing is closed or changed.
func (s *Session) IsExpired() bool {
	return s.now().Sub(s.createdAt) > s.ttl
}

// -----------------------------------------------------------------------------

// Close releases the permit. Safe to call more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateReleased))
		s.cleanup.Stop()
		s.permit.Release()
		s.logger.Info("%s : %s session %s released", s.name, s.kind, s.id)

		if s.store != nil {
			if err := s.store.MarkReleased(s.id, s.now()); err != nil {
				s.logger.Warning("%s : failed to record release of session %s: %v", s.name, s.id, err)
			}
		}
	})
}

// -----------------------------------------------------------------------------
// Manager
// -----------------------------------------------------------------------------

// Manager creates sessions against one Guard
type Manager struct {
	name   string
	guard  *Guard
	client interfaces.IHTTPClient
	creds  interfaces.ICredentialsProvider
	dialer interfaces.IStreamDialer
	store  interfaces.ISessionStore
	logger *logger.Logger
	now    func() time.Time
	ttl    time.Duration
	urls   map[models.MSessionKind]string
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithHTTPClient sets the handshake transport
func WithHTTPClient(client interfaces.IHTTPClient) ManagerOption {
	return func(m *Manager) { m.client = client }
}

// WithDialer sets the stream transport used by market and account sessions
func WithDialer(dialer interfaces.IStreamDialer) ManagerOption {
	return func(m *Manager) { m.dialer = dialer }
}

// WithStore records session lifecycles
func WithStore(store interfaces.ISessionStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithStreamURL makes sessions of kind dial url instead of the handshake URL
func WithStreamURL(kind models.MSessionKind, url string) ManagerOption {
	return func(m *Manager) {
		if url != "" {
			m.urls[kind] = url
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithTTL sets the expiry used by Session.IsExpired
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// -----------------------------------------------------------------------------

// NewManager builds a Manager. Without options it uses a 30s http.Client,
// no store, the wall clock and DefaultTTL.
func NewManager(guard *Guard, creds interfaces.ICredentialsProvider, log *logger.Logger, name string, opts ...ManagerOption) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	m := &Manager{
		name:   name,
		guard:  guard,
		client: &http.Client{Timeout: 30 * time.Second},
		creds:  creds,
		logger: log,
		now:    time.Now,
		ttl:    DefaultTTL,
		urls:   map[models.MSessionKind]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// -----------------------------------------------------------------------------

// IsActive reports whether a session of this manager's guard is live
func (m *Manager) IsActive() bool {
	return m.guard.IsActive()
}

// -----------------------------------------------------------------------------

// NewSession acquires the guard and negotiates a stream endpoint. On any
// failure after the guard was taken, the permit is released before returning.
func (m *Manager) NewSession(ctx context.Context, kind models.MSessionKind) (*Session, error) {
	permit, err := m.guard.Acquire()
	if err != nil {
		m.logger.Warning("%s : cannot open %s session: %v", m.name, kind, err)
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			permit.Release()
		}
	}()

	s := &Session{
		id:        uuid.NewString(),
		name:      m.name,
		kind:      kind,
		ttl:       m.ttl,
		now:       m.now,
		logger:    m.logger,
		store:     m.store,
		permit:    permit,
		streamURL: m.urls[kind],
	}
	s.state.Store(int32(StateNegotiating))

	token, _ := m.creds.GetAccessToken()
	baseURL := m.creds.GetBaseURL()
	m.logger.Debug("%s : negotiating %s session at %s (token %s)", m.name, kind, baseURL, utils.MaskToken(token))

	endpoint, err := Negotiate(ctx, m.client, m.logger, kind, baseURL, token)
	if err != nil {
		m.logger.Error("%s : %s session handshake failed: %v", m.name, kind, err)
		return nil, err
	}

	s.endpoint = endpoint
	s.createdAt = m.now()
	s.state.Store(int32(StateActive))
	// Last resort for sessions dropped without Close
	s.cleanup = runtime.AddCleanup(s, func(p *Permit) { p.Release() }, permit)
	ok = true

	m.logger.Info("%s : %s session %s active, stream %s", m.name, kind, s.id, utils.MaskURL(s.StreamURL()))

	if m.store != nil {
		record := &models.MSessionRecord{
			ID:        s.id,
			Kind:      kind,
			StreamID:  utils.MaskToken(endpoint.StreamID),
			StreamURL: utils.MaskURL(s.StreamURL()),
			CreatedAt: s.createdAt,
		}
		if err := m.store.RecordSession(record); err != nil {
			m.logger.Warning("%s : failed to record session %s: %v", m.name, s.id, err)
		}
	}

	return s, nil
}
