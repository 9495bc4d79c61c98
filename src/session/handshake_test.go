package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakePath(t *testing.T) {
	path, err := HandshakePath(models.SessionKindMarket)
	require.NoError(t, err)
	assert.Equal(t, "/v1/markets/events/session", path)

	path, err = HandshakePath(models.SessionKindAccount)
	require.NoError(t, err)
	assert.Equal(t, "/v1/accounts/events/session", path)

	_, err = HandshakePath("options")
	var unknown *UnknownKindError
	assert.ErrorAs(t, err, &unknown)
}

func TestNegotiate_RequestShape(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))

	endpoint, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindMarket, hs.URL+"/", "tok-123")
	require.NoError(t, err)
	assert.Equal(t, models.MStreamEndpoint{URL: "wss://x", StreamID: "abc"}, endpoint)

	req := hs.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v1/markets/events/session", req.URL.Path)
	assert.Equal(t, "Bearer tok-123", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, int64(0), req.ContentLength)
	assert.Empty(t, req.TransferEncoding)
}

func TestNegotiate_AccountPath(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://acct", "s1"))

	_, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindAccount, hs.URL, "tok")
	require.NoError(t, err)
	assert.Equal(t, "/v1/accounts/events/session", hs.lastRequest().URL.Path)
}

func TestNegotiate_MissingTokenSendsNothing(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusOK, streamBody("wss://x", "abc"))

	for _, token := range []string{"", "   "} {
		_, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindMarket, hs.URL, token)
		assert.ErrorIs(t, err, ErrMissingCredential)
	}
	assert.Zero(t, hs.requests.Load())
}

func TestNegotiate_NonSuccessKeepsStatusAndBody(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusInternalServerError, "boom")

	_, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindMarket, hs.URL, "tok")

	var failed *HandshakeError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, &HandshakeError{Kind: models.SessionKindMarket, Status: 500, Body: "boom"}, failed)
}

func TestNegotiate_OversizedErrorBodyIsMarkedTruncated(t *testing.T) {
	hs := newHandshakeServer(t, http.StatusBadGateway, strings.Repeat("x", maxHandshakeBody+10))

	_, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindMarket, hs.URL, "tok")

	var failed *HandshakeError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, http.StatusBadGateway, failed.Status)
	assert.True(t, failed.Truncated)
	assert.Len(t, failed.Body, maxHandshakeBody)
	assert.Contains(t, err.Error(), "body truncated to 1048576 bytes")
}

func TestNegotiate_ErrorBodyAtCapIsComplete(t *testing.T) {
	body := strings.Repeat("y", maxHandshakeBody)
	hs := newHandshakeServer(t, http.StatusForbidden, body)

	_, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindMarket, hs.URL, "tok")

	var failed *HandshakeError
	require.ErrorAs(t, err, &failed)
	assert.False(t, failed.Truncated)
	assert.Equal(t, body, failed.Body)
	assert.NotContains(t, err.Error(), "truncated")
}

func TestNegotiate_LogsStatusAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(&models.MConfig{LogLevel: "DEBUG"}, "test")
	log.SetOutput(&buf)

	failing := newHandshakeServer(t, http.StatusUnauthorized, `{"fault":"invalid token"}`)
	_, err := Negotiate(context.Background(), http.DefaultClient, log, models.SessionKindMarket, failing.URL, "tok")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "market session status 401")
	assert.Contains(t, buf.String(), "invalid token")

	buf.Reset()
	ok := newHandshakeServer(t, http.StatusOK, streamBody("wss://ws.tradier.com/v1/markets/events", "c4b1f9e2a7d3"))
	_, err = Negotiate(context.Background(), http.DefaultClient, log, models.SessionKindMarket, ok.URL, "tok")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "market session status 200")
	assert.NotContains(t, buf.String(), "c4b1f9e2a7d3")
}

func TestNegotiate_MalformedBodies(t *testing.T) {
	bodies := []string{
		"not json",
		"{}",
		`{"stream":null}`,
		`{"stream":{"sessionid":"abc"}}`,
		`{"stream":{"url":"wss://x"}}`,
		`{"stream":{"url":"wss://x","sessionid":"abc"}} trailing`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			hs := newHandshakeServer(t, http.StatusOK, body)

			_, err := Negotiate(context.Background(), http.DefaultClient, nil, models.SessionKindMarket, hs.URL, "tok")

			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, body, malformed.Body)
			assert.Equal(t, models.SessionKindMarket, malformed.Kind)
		})
	}
}

type failingClient struct{ err error }

func (c failingClient) Do(*http.Request) (*http.Response, error) { return nil, c.err }

func TestNegotiate_NetworkFailureIsTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	_, err := Negotiate(context.Background(), failingClient{err: cause}, nil, models.SessionKindMarket, "https://api.example.com", "tok")

	var transportErr *stream.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "handshake", transportErr.Op)
	assert.ErrorIs(t, err, cause)
}
