package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/serializers"
	"tradier-streamer/src/stream"
	"tradier-streamer/src/utils"
)

const maxHandshakeBody = 1 << 20

var handshakePaths = map[models.MSessionKind]string{
	models.SessionKindMarket:  "/v1/markets/events/session",
	models.SessionKindAccount: "/v1/accounts/events/session",
}

// -----------------------------------------------------------------------------

// HandshakePath returns the session request path for kind
func HandshakePath(kind models.MSessionKind) (string, error) {
	path, ok := handshakePaths[kind]
	if !ok {
		return "", &UnknownKindError{Kind: kind}
	}
	return path, nil
}

// -----------------------------------------------------------------------------

type handshakeResponse struct {
	Stream *models.MStreamEndpoint `json:"stream"`
}

// -----------------------------------------------------------------------------

// Negotiate exchanges token for a stream endpoint with a single empty POST.
// It returns ErrMissingCredential, *HandshakeError, *MalformedResponseError or
// a *stream.TransportError with Op "handshake". A nil log discards output.
func Negotiate(ctx context.Context, client interfaces.IHTTPClient, log *logger.Logger, kind models.MSessionKind, baseURL, token string) (models.MStreamEndpoint, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	path, err := HandshakePath(kind)
	if err != nil {
		return models.MStreamEndpoint{}, err
	}
	if strings.TrimSpace(token) == "" {
		return models.MStreamEndpoint{}, ErrMissingCredential
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return models.MStreamEndpoint{}, fmt.Errorf("failed to build handshake request: %w", err)
	}
	// A nil body makes net/http send an explicit "Content-Length: 0" and never chunk
	req.ContentLength = 0
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.MStreamEndpoint{}, &stream.TransportError{Op: "handshake", URL: url, Err: err}
	}
	defer resp.Body.Close()

	// One extra byte tells a body of exactly maxHandshakeBody from a longer one
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHandshakeBody+1))
	if err != nil {
		return models.MStreamEndpoint{}, &stream.TransportError{Op: "handshake", URL: url, Err: err}
	}
	truncated := len(body) > maxHandshakeBody
	if truncated {
		body = body[:maxHandshakeBody]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("handshake : %s session status %d, body %q (truncated %t)", kind, resp.StatusCode, body, truncated)
		return models.MStreamEndpoint{}, &HandshakeError{Kind: kind, Status: resp.StatusCode, Body: string(body), Truncated: truncated}
	}

	var decoded handshakeResponse
	if err := serializers.NewJSONSerializer().Unmarshal(body, &decoded); err != nil {
		return models.MStreamEndpoint{}, &MalformedResponseError{Kind: kind, Body: string(body), Err: err}
	}
	switch {
	case decoded.Stream == nil:
		return models.MStreamEndpoint{}, &MalformedResponseError{Kind: kind, Body: string(body), Err: fmt.Errorf("missing stream object")}
	case decoded.Stream.URL == "":
		return models.MStreamEndpoint{}, &MalformedResponseError{Kind: kind, Body: string(body), Err: fmt.Errorf("missing stream url")}
	case decoded.Stream.StreamID == "":
		return models.MStreamEndpoint{}, &MalformedResponseError{Kind: kind, Body: string(body), Err: fmt.Errorf("missing stream sessionid")}
	}

	log.Debug("handshake : %s session status %d, stream %s, sessionid %s", kind, resp.StatusCode,
		utils.MaskURL(decoded.Stream.URL), utils.MaskToken(decoded.Stream.StreamID))
	return *decoded.Stream, nil
}
