package stream

import (
	"errors"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/models"
	"tradier-streamer/src/serializers"
)

// ErrNoSymbols is returned when a subscription names no symbol
var ErrNoSymbols = errors.New("subscription requires at least one symbol")

// -----------------------------------------------------------------------------

// Payload is the subscription message sent once after a market stream connects.
// Nil optional fields are left out of the wire object.
type Payload struct {
	Symbols         []string     `json:"symbols"`
	Filters         []FilterKind `json:"filters,omitempty"`
	StreamID        string       `json:"sessionid"`
	Linebreak       *bool        `json:"linebreak,omitempty"`
	ValidOnly       *bool        `json:"validOnly,omitempty"`
	AdvancedDetails *bool        `json:"advancedDetails,omitempty"`
}

// -----------------------------------------------------------------------------

// BuildPayload assembles a subscription. Duplicate filters are dropped, first one wins.
func BuildPayload(symbols []string, filters []FilterKind, streamID string, linebreak, validOnly, advancedDetails *bool) (*Payload, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	var unique []FilterKind
	if filters != nil {
		unique = make([]FilterKind, 0, len(filters))
		seen := make(map[FilterKind]bool, len(filters))
		for _, f := range filters {
			if !seen[f] {
				seen[f] = true
				unique = append(unique, f)
			}
		}
	}

	return &Payload{
		Symbols:         append([]string(nil), symbols...),
		Filters:         unique,
		StreamID:        streamID,
		Linebreak:       linebreak,
		ValidOnly:       validOnly,
		AdvancedDetails: advancedDetails,
	}, nil
}

// -----------------------------------------------------------------------------

// RecommendedPayload subscribes to quotes, one event per line, including invalid ticks
func RecommendedPayload(symbols []string, streamID string) (*Payload, error) {
	return BuildPayload(symbols, []FilterKind{FilterQuote}, streamID, boolPtr(true), boolPtr(false), boolPtr(false))
}

// -----------------------------------------------------------------------------

// PayloadFromConfig builds the subscription described by the market section of the configuration
func PayloadFromConfig(cfg models.MMarketStreamConfig, streamID string) (*Payload, error) {
	filters, err := ParseFilters(cfg.Filters)
	if err != nil {
		return nil, err
	}
	return BuildPayload(cfg.Symbols, filters, streamID, cfg.Linebreak, cfg.ValidOnly, cfg.AdvancedDetails)
}

// -----------------------------------------------------------------------------

// ToWireMessage serializes the payload into a single text frame.
// A nil serializer falls back to JSON.
func (p *Payload) ToWireMessage(serializer interfaces.ISerializer) (models.MFrame, error) {
	if serializer == nil {
		serializer = serializers.NewJSONSerializer()
	}
	data, err := serializer.Marshal(p)
	if err != nil {
		return models.MFrame{}, &EncodeError{Err: err}
	}
	return models.MFrame{Type: models.FrameText, Data: data}, nil
}

func boolPtr(v bool) *bool { return &v }
