package streamer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tradier-streamer/src/config"
	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/session"
	"tradier-streamer/src/stream"
	"tradier-streamer/src/utils"
)

// -----------------------------------------------------------------------------
// Streamer
// -----------------------------------------------------------------------------

// Streamer keeps one stream of the configured kind alive: it opens a session,
// streams until the loop ends, waits reconnect_interval and starts over.
// Events are forwarded to the publisher.
type Streamer struct {
	Name      string
	Config    *config.Config
	Logger    *logger.Logger
	Manager   *session.Manager
	Publisher interfaces.IPublisher
	Calendar  *utils.TradingCalendar

	listeners []interfaces.ISessionStateListener
	now       func() time.Time

	mu     sync.RWMutex
	status models.MStreamStatus

	frames       atomic.Uint64
	binaryFrames atomic.Uint64
	reconnects   atomic.Uint64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// -----------------------------------------------------------------------------

// NewStreamer creates a new Streamer instance
func NewStreamer(cfg *config.Config, log *logger.Logger, manager *session.Manager, publisher interfaces.IPublisher, listeners ...interfaces.ISessionStateListener) *Streamer {
	return &Streamer{
		Name:      "TradierStreamer",
		Config:    cfg,
		Logger:    log,
		Manager:   manager,
		Publisher: publisher,
		Calendar:  utils.GetCalendar("xnys"),
		listeners: listeners,
		now:       time.Now,
		status: models.MStreamStatus{
			Kind:    cfg.Streaming.Kind,
			Symbols: append([]string(nil), cfg.Streaming.Market.Symbols...),
		},
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start connects the publisher and runs the stream loop in the background
func (s *Streamer) Start() error {
	s.Logger.Info("%s : starting %s streamer", s.Name, s.Config.Streaming.Kind)

	if err := s.Publisher.Connect(); err != nil {
		return fmt.Errorf("failed to connect to publisher: %w", err)
	}
	s.Logger.Info("%s : publisher %s connected", s.Name, s.Publisher.GetName())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.Logger.Error("%s : stream loop stopped: %v", s.Name, err)
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels the loop, waits for the session to be released and disconnects the publisher
func (s *Streamer) Stop() error {
	s.Logger.Info("%s : stopping streamer", s.Name)
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err := s.Publisher.Disconnect(); err != nil {
		s.Logger.Error("%s : failed to disconnect publisher: %v", s.Name, err)
	}
	s.Logger.Info("%s : streamer stopped", s.Name)
	return nil
}

// -----------------------------------------------------------------------------

// Run repeats stream cycles until ctx ends. A session is reused across cycles
// until it expires; errors are recorded in the status and retried after the
// reconnect interval.
func (s *Streamer) Run(ctx context.Context) error {
	s.setRunning(true)
	defer s.setRunning(false)

	var current *session.Session
	defer func() {
		if current != nil {
			s.release(current)
		}
	}()

	for {
		if current != nil && current.IsExpired() {
			s.Logger.Info("%s : session %s expired, negotiating a new one", s.Name, current.ID())
			s.release(current)
			current = nil
		}

		err := s.cycle(ctx, &current)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.setError(err)
			if dropSession(err) && current != nil {
				s.release(current)
				current = nil
			}
		}

		s.reconnects.Add(1)
		interval := s.Config.ReconnectInterval()
		if err != nil {
			s.Logger.Warning("%s : stream failed: %v, reconnecting in %s", s.Name, err, interval)
		} else {
			s.Logger.Info("%s : stream closed by server, reconnecting in %s", s.Name, interval)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// -----------------------------------------------------------------------------

// cycle runs one stream on *current, opening a session first when needed
func (s *Streamer) cycle(ctx context.Context, current **session.Session) error {
	kind := s.Config.Streaming.Kind

	if kind == models.SessionKindMarket && !s.Calendar.IsOpen(s.now()) {
		s.Logger.Warning("%s : market is closed, expect few or no events", s.Name)
	}

	if *current == nil {
		sess, err := s.Manager.NewSession(ctx, kind)
		if err != nil {
			return err
		}
		*current = sess
		s.setSession(sess)
	}
	sess := *current

	switch kind {
	case models.SessionKindMarket:
		payload, err := stream.PayloadFromConfig(s.Config.Streaming.Market, sess.Endpoint().StreamID)
		if err != nil {
			return err
		}
		market, err := s.Manager.AsMarket(sess)
		if err != nil {
			return err
		}
		return market.Stream(ctx, payload, s.onEvent)
	default:
		account, err := s.Manager.AsAccount(sess)
		if err != nil {
			return err
		}
		return account.Listen(ctx, s.onEvent)
	}
}

// -----------------------------------------------------------------------------

// onEvent updates counters and forwards the event
func (s *Streamer) onEvent(event *models.MStreamEvent) error {
	if event.Kind == models.EventBinary {
		s.binaryFrames.Add(1)
	} else {
		s.frames.Add(1)
	}

	s.mu.Lock()
	at := event.ReceivedAt
	s.status.LastEventAt = &at
	s.mu.Unlock()

	s.Publisher.OnStreamEvent(s.Config.Streaming.Kind, event)
	return nil
}

// -----------------------------------------------------------------------------

// dropSession reports whether a failed cycle invalidates the current stream id
func dropSession(err error) bool {
	var transportErr *stream.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Op == "dial"
	}
	var unsupported *stream.UnsupportedFilterError
	return !errors.As(err, &unsupported) && !errors.Is(err, stream.ErrNoSymbols)
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// GetStatus implements interfaces.IStatusProvider
func (s *Streamer) GetStatus() *models.MStreamStatus {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	status.Symbols = append([]string(nil), status.Symbols...)
	status.SessionActive = s.Manager.IsActive()
	status.Frames = s.frames.Load()
	status.BinaryFrames = s.binaryFrames.Load()
	status.Reconnects = s.reconnects.Load()
	return &status
}

// -----------------------------------------------------------------------------

func (s *Streamer) setRunning(running bool) {
	s.mu.Lock()
	s.status.Running = running
	s.mu.Unlock()
}

func (s *Streamer) setError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func (s *Streamer) setSession(sess *session.Session) {
	s.mu.Lock()
	s.status.StreamID = utils.MaskToken(sess.Endpoint().StreamID)
	s.status.Endpoint = utils.MaskURL(sess.StreamURL())
	s.status.LastError = ""
	s.mu.Unlock()

	for _, l := range s.listeners {
		l.OnSessionState(sess.Kind(), true)
	}
}

func (s *Streamer) release(sess *session.Session) {
	sess.Close()

	s.mu.Lock()
	s.status.StreamID = ""
	s.status.Endpoint = ""
	s.mu.Unlock()

	for _, l := range s.listeners {
		l.OnSessionState(sess.Kind(), false)
	}
}
