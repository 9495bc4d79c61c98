package serializers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tradier-streamer/src/interfaces"
)

const JSONContentType = "application/json"

// -----------------------------------------------------------------------------

// JSONSerializer writes compact JSON without HTML escaping, so raw event text
// embedded in an envelope keeps its original bytes.
type JSONSerializer struct{}

// -----------------------------------------------------------------------------

func NewJSONSerializer() interfaces.ISerializer {
	return &JSONSerializer{}
}

// -----------------------------------------------------------------------------

func (j *JSONSerializer) Marshal(obj any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("json marshal error: %w", err)
	}
	// Encode terminates every value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// -----------------------------------------------------------------------------

func (j *JSONSerializer) Unmarshal(data []byte, obj any) error {
	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("json unmarshal error: %w", err)
	}
	return nil
}

func (j *JSONSerializer) ContentType() string { return JSONContentType }
