package session

import (
	"context"
	"errors"
	"fmt"

	"tradier-streamer/src/models"
	"tradier-streamer/src/stream"
	"tradier-streamer/src/transports"
)

// -----------------------------------------------------------------------------

// MarketSession streams market events after sending a subscription
type MarketSession struct {
	*Session
	loop *stream.Loop
}

// -----------------------------------------------------------------------------

// NewMarketSession negotiates a market session
func (m *Manager) NewMarketSession(ctx context.Context) (*MarketSession, error) {
	s, err := m.NewSession(ctx, models.SessionKindMarket)
	if err != nil {
		return nil, err
	}
	return m.AsMarket(s)
}

// -----------------------------------------------------------------------------

// AsMarket wraps an active market session created by this manager
func (m *Manager) AsMarket(s *Session) (*MarketSession, error) {
	if s.Kind() != models.SessionKindMarket {
		return nil, fmt.Errorf("session %s is a %s session", s.ID(), s.Kind())
	}
	return &MarketSession{Session: s, loop: m.newLoop("market")}, nil
}

// -----------------------------------------------------------------------------

// RecommendedPayload builds the default subscription bound to this session's stream id
func (s *MarketSession) RecommendedPayload(symbols []string) (*stream.Payload, error) {
	return stream.RecommendedPayload(symbols, s.Endpoint().StreamID)
}

// -----------------------------------------------------------------------------

// Stream connects, sends payload and dispatches events until the stream ends.
// The payload is always sent with this session's stream id.
func (s *MarketSession) Stream(ctx context.Context, payload *stream.Payload, onEvent stream.EventHandler) error {
	if s.State() != StateActive {
		return ErrSessionReleased
	}
	if payload == nil {
		return errors.New("market stream requires a subscription payload")
	}

	bound := *payload
	bound.StreamID = s.Endpoint().StreamID

	frame, err := bound.ToWireMessage(nil)
	if err != nil {
		return err
	}
	return s.loop.Run(ctx, s.StreamURL(), &frame, onEvent)
}

// -----------------------------------------------------------------------------

func (m *Manager) newLoop(kind string) *stream.Loop {
	dialer := m.dialer
	if dialer == nil {
		dialer = transports.NewWebSocketDialer(transports.DefaultHandshakeTimeout, m.logger, m.name)
	}
	return &stream.Loop{
		Name:   m.name + "/" + kind,
		Logger: m.logger,
		Dialer: dialer,
		Now:    m.now,
	}
}
