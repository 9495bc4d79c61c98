package stream

import (
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------

// FilterKind selects which event types a market stream delivers
type FilterKind int

const (
	FilterTrade FilterKind = iota
	FilterQuote
	FilterSummary
	FilterTimeSale
	FilterTradeExtended
)

// filterTokens is the only place wire tokens are defined; parsing and encoding both read it
var filterTokens = [...]string{
	FilterTrade:         "trade",
	FilterQuote:         "quote",
	FilterSummary:       "summary",
	FilterTimeSale:      "timesale",
	FilterTradeExtended: "tradex",
}

// AllFilters lists every known filter in declaration order
func AllFilters() []FilterKind {
	all := make([]FilterKind, len(filterTokens))
	for i := range filterTokens {
		all[i] = FilterKind(i)
	}
	return all
}

// -----------------------------------------------------------------------------

// ParseFilter maps a wire token to its FilterKind. Tokens are case sensitive.
func ParseFilter(token string) (FilterKind, error) {
	for i, known := range filterTokens {
		if known == token {
			return FilterKind(i), nil
		}
	}
	return 0, &UnsupportedFilterError{Token: token}
}

// -----------------------------------------------------------------------------

// ParseFilters parses a list of tokens, stopping at the first unknown one
func ParseFilters(tokens []string) ([]FilterKind, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	filters := make([]FilterKind, 0, len(tokens))
	for _, token := range tokens {
		filter, err := ParseFilter(token)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// -----------------------------------------------------------------------------

// String returns the wire token
func (f FilterKind) String() string {
	if f < 0 || int(f) >= len(filterTokens) {
		return fmt.Sprintf("FilterKind(%d)", int(f))
	}
	return filterTokens[f]
}

// -----------------------------------------------------------------------------

// MarshalJSON encodes the filter as its wire token
func (f FilterKind) MarshalJSON() ([]byte, error) {
	if f < 0 || int(f) >= len(filterTokens) {
		return nil, fmt.Errorf("unknown filter kind %d", int(f))
	}
	return json.Marshal(filterTokens[f])
}

// -----------------------------------------------------------------------------

// UnmarshalJSON decodes a wire token through ParseFilter
func (f *FilterKind) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	parsed, err := ParseFilter(token)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
