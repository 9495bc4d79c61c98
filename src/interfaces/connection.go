package interfaces

import (
	"context"

	"tradier-streamer/src/models"
)

// -----------------------------------------------------------------------------

// IStreamDialer opens persistent bidirectional stream connections
type IStreamDialer interface {
	// Dial connects to url. The handshake honours ctx.
	Dial(ctx context.Context, url string) (IStreamConnection, error)

	// GetType returns the transport type
	GetType() string
}

// -----------------------------------------------------------------------------

// IStreamConnection is one open full-duplex connection.
// Reads and writes may run on different goroutines, but not two of the same kind at once.
type IStreamConnection interface {
	// SendFrame writes and flushes a single frame
	SendFrame(frame models.MFrame) error

	// ReadFrame blocks until the next frame. A peer close is returned as a
	// FrameClose frame with a nil error.
	ReadFrame() (models.MFrame, error)

	// Close releases the connection; it unblocks a pending ReadFrame
	Close() error
}
