package serializers

import (
	"fmt"

	"tradier-streamer/src/interfaces"
)

// NewSerializer returns the serializer for a publisher encoding, json when empty.
func NewSerializer(encoding string) (interfaces.ISerializer, error) {
	switch encoding {
	case "", "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGobSerializer(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
