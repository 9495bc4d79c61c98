package models

import "time"

// -----------------------------------------------------------------------------

// MFrameType classifies a frame read from or written to the stream connection.
type MFrameType int

const (
	FrameText MFrameType = iota
	FrameBinary
	FrameClose
)

// -----------------------------------------------------------------------------

// MFrame is a single transport-level frame.
type MFrame struct {
	Type MFrameType
	Data []byte
	// CloseCode is only set on FrameClose.
	CloseCode int
}

// -----------------------------------------------------------------------------

// MEventKind tells the caller how to read an MStreamEvent.
type MEventKind string

const (
	EventText   MEventKind = "text"
	EventBinary MEventKind = "binary"
)

// -----------------------------------------------------------------------------

// MStreamEvent is what the stream loop hands to its caller for each data frame.
// Text events carry the raw JSON text unparsed; binary events carry only their size.
type MStreamEvent struct {
	Kind       MEventKind `json:"kind"`
	Text       string     `json:"text,omitempty"`
	Size       int        `json:"size"`
	ReceivedAt time.Time  `json:"received_at"`
}
