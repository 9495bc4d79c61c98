package models

import "time"

// -----------------------------------------------------------------------------

// MSessionKind identifies which event feed a streaming session belongs to.
type MSessionKind string

const (
	SessionKindMarket  MSessionKind = "market"
	SessionKindAccount MSessionKind = "account"
)

// -----------------------------------------------------------------------------

// MStreamEndpoint is the result of a successful session handshake.
type MStreamEndpoint struct {
	URL      string `json:"url"`
	StreamID string `json:"sessionid"`
}

// -----------------------------------------------------------------------------

// MSessionRecord is the stored history entry of one negotiated session.
// Only lifecycle metadata is kept, never stream payloads.
type MSessionRecord struct {
	ID         string       `json:"id"`
	Kind       MSessionKind `json:"kind"`
	StreamID   string       `json:"stream_id"`
	StreamURL  string       `json:"stream_url"`
	CreatedAt  time.Time    `json:"created_at"`
	ReleasedAt *time.Time   `json:"released_at,omitempty"`
}
