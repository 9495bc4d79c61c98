package session

import (
	"context"
	"fmt"

	"tradier-streamer/src/models"
	"tradier-streamer/src/stream"
)

// -----------------------------------------------------------------------------

// AccountSession listens to account events; nothing is sent after connecting
type AccountSession struct {
	*Session
	loop *stream.Loop
}

// -----------------------------------------------------------------------------

// NewAccountSession negotiates an account session
func (m *Manager) NewAccountSession(ctx context.Context) (*AccountSession, error) {
	s, err := m.NewSession(ctx, models.SessionKindAccount)
	if err != nil {
		return nil, err
	}
	return m.AsAccount(s)
}

// -----------------------------------------------------------------------------

// AsAccount wraps an active account session created by this manager
func (m *Manager) AsAccount(s *Session) (*AccountSession, error) {
	if s.Kind() != models.SessionKindAccount {
		return nil, fmt.Errorf("session %s is a %s session", s.ID(), s.Kind())
	}
	return &AccountSession{Session: s, loop: m.newLoop("account")}, nil
}

// -----------------------------------------------------------------------------

// Listen connects and dispatches events until the stream ends
func (s *AccountSession) Listen(ctx context.Context, onEvent stream.EventHandler) error {
	if s.State() != StateActive {
		return ErrSessionReleased
	}
	return s.loop.Run(ctx, s.StreamURL(), nil, onEvent)
}
