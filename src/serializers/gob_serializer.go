package serializers

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"tradier-streamer/src/interfaces"
)

const GobContentType = "application/x-gob"

// -----------------------------------------------------------------------------

// GobSerializer encodes published events with encoding/gob for Go consumers.
type GobSerializer struct{}

// -----------------------------------------------------------------------------

// NewGobSerializer creates a new instance of the gob serializer.
func NewGobSerializer() interfaces.ISerializer {
	return &GobSerializer{}
}

// -----------------------------------------------------------------------------

func (g *GobSerializer) Marshal(obj any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(obj); err != nil {
		return nil, fmt.Errorf("gob marshal error: %w", err)
	}
	return buf.Bytes(), nil
}

// -----------------------------------------------------------------------------

func (g *GobSerializer) Unmarshal(data []byte, obj any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(obj); err != nil {
		return fmt.Errorf("gob unmarshal error: %w", err)
	}
	return nil
}

func (g *GobSerializer) ContentType() string { return GobContentType }
