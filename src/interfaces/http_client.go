package interfaces

import "net/http"

// -----------------------------------------------------------------------------

// IHTTPClient is the request/response transport used by the session handshake.
// *http.Client satisfies it.
type IHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// -----------------------------------------------------------------------------

// ICredentialsProvider exposes what the handshake needs from configuration.
type ICredentialsProvider interface {
	// GetBaseURL returns the REST base URL the handshake path is appended to
	GetBaseURL() string

	// GetAccessToken returns the bearer token and whether one is configured
	GetAccessToken() (string, bool)
}
