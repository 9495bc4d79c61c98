package utils

import (
	"net/url"
	"strings"
)

// sensitive query parameters hidden from logs and status output
var sensitiveParams = []string{"token", "sessionid", "apikey", "api_key", "access_token"}

// -----------------------------------------------------------------------------

// MaskToken keeps the first and last 2 characters of a secret.
func MaskToken(token string) string {
	if len(token) <= 6 {
		return strings.Repeat("*", len(token))
	}
	return token[:2] + strings.Repeat("*", len(token)-4) + token[len(token)-2:]
}

// -----------------------------------------------------------------------------

// MaskURL masks credentials in the query string and userinfo of a URL.
// Unparseable input is returned fully masked.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return MaskToken(raw)
	}

	if u.User != nil {
		u.User = url.User(u.User.Username())
	}

	if u.RawQuery != "" {
		parts := strings.Split(u.RawQuery, "&")
		for i, part := range parts {
			key, value, found := strings.Cut(part, "=")
			if !found {
				continue
			}
			for _, param := range sensitiveParams {
				if strings.EqualFold(key, param) {
					parts[i] = key + "=" + MaskToken(value)
					break
				}
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}
	return u.String()
}
