package session

import (
	"errors"
	"fmt"

	"tradier-streamer/src/models"
)

var (
	// ErrAlreadyActive is returned while another session holds the guard
	ErrAlreadyActive = errors.New("a streaming session is already active")

	// ErrMissingCredential is returned before any request when no access token is configured
	ErrMissingCredential = errors.New("no access token configured")

	// ErrSessionReleased is returned when streaming on a closed session
	ErrSessionReleased = errors.New("session already released")
)

// -----------------------------------------------------------------------------

// UnknownKindError reports a session kind without a handshake path
type UnknownKindError struct {
	Kind models.MSessionKind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown session kind %q", string(e.Kind))
}

// -----------------------------------------------------------------------------

// HandshakeError is a non-2xx answer to the session request. Status and Body
// are kept as received; Truncated is set when Body stops at the 1 MiB read cap.
type HandshakeError struct {
	Kind      models.MSessionKind
	Status    int
	Body      string
	Truncated bool
}

func (e *HandshakeError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("%s session handshake failed with status %d (body truncated to %d bytes): %s", e.Kind, e.Status, len(e.Body), e.Body)
	}
	return fmt.Sprintf("%s session handshake failed with status %d: %s", e.Kind, e.Status, e.Body)
}

// -----------------------------------------------------------------------------

// MalformedResponseError is a 2xx answer whose body is not a usable stream descriptor
type MalformedResponseError struct {
	Kind models.MSessionKind
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s session handshake returned a malformed body (%v): %s", e.Kind, e.Err, e.Body)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
