package interfaces

import "tradier-streamer/src/models"

// -----------------------------------------------------------------------------

// IStatusProvider exposes the live state of the stream daemon
type IStatusProvider interface {
	// GetStatus returns a snapshot; callers may keep it
	GetStatus() *models.MStreamStatus
}

// -----------------------------------------------------------------------------

// ISessionStateListener is told whenever a session of kind becomes active or is released
type ISessionStateListener interface {
	OnSessionState(kind models.MSessionKind, active bool)
}
