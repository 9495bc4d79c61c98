package interfaces

import "tradier-streamer/src/models"

// -----------------------------------------------------------------------------

// IPublisher defines the interface for forwarding stream events
type IPublisher interface {
	// OnStreamEvent forwards one event received on a session of the given kind
	OnStreamEvent(kind models.MSessionKind, event *models.MStreamEvent)

	// Connect establishes connection to the message broker
	Connect() error

	// Disconnect closes the connection to the message broker
	Disconnect() error

	// IsConnected returns the current connection status
	IsConnected() bool

	// GetName returns the publisher name
	GetName() string
}
