package models

import "time"

// -----------------------------------------------------------------------------

// MStreamStatus represents the runtime status of the streamer daemon.
type MStreamStatus struct {
	Running       bool         `json:"running"`        // daemon loop is alive
	SessionActive bool         `json:"session_active"` // a session currently holds the guard
	Kind          MSessionKind `json:"kind"`
	StreamID      string       `json:"stream_id,omitempty"`
	Endpoint      string       `json:"endpoint,omitempty"` // masked
	Symbols       []string     `json:"symbols,omitempty"`
	Frames        uint64       `json:"frames"`
	BinaryFrames  uint64       `json:"binary_frames"`
	Reconnects    uint64       `json:"reconnects"`
	LastEventAt   *time.Time   `json:"last_event_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
}
