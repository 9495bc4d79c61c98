package interfaces

// -----------------------------------------------------------------------------

// ISerializer encodes subscription messages, handshake responses and
// published event envelopes.
type ISerializer interface {
	Marshal(obj any) ([]byte, error)
	Unmarshal(data []byte, obj any) error

	// ContentType is attached to published messages so consumers can pick a decoder
	ContentType() string
}
