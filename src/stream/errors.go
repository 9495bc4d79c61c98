package stream

import "fmt"

// -----------------------------------------------------------------------------

// UnsupportedFilterError reports a filter token outside the known set
type UnsupportedFilterError struct {
	Token string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("unsupported filter %q", e.Token)
}

// -----------------------------------------------------------------------------

// EncodeError reports a subscription payload that could not be serialized
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode subscription payload: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// TransportError reports a connection level failure while streaming
type TransportError struct {
	Op  string // dial, send, read
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
