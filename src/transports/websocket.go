package transports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/utils"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the websocket opening handshake
const DefaultHandshakeTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

// WebSocketDialer implements IStreamDialer using Gorilla WebSocket
type WebSocketDialer struct {
	name   string
	logger *logger.Logger
	dialer websocket.Dialer
	header http.Header
}

// -----------------------------------------------------------------------------

// NewWebSocketDialer creates a new WebSocket dialer
func NewWebSocketDialer(handshakeTimeout time.Duration, log *logger.Logger, name string) *WebSocketDialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &WebSocketDialer{
		name:   name,
		logger: log,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header: http.Header{},
	}
}

// -----------------------------------------------------------------------------

// GetType returns the transport type
func (d *WebSocketDialer) GetType() string {
	return "websocket"
}

// -----------------------------------------------------------------------------

// Dial opens the connection. http(s) URLs are dialed as ws(s).
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (interfaces.IStreamConnection, error) {
	target := ToWebSocketURL(url)

	conn, resp, err := d.dialer.DialContext(ctx, target, d.header)
	if err != nil {
		if resp != nil {
			d.logger.Error("%s : failed to connect to %s: %v (status %d)", d.name, utils.MaskURL(target), err, resp.StatusCode)
			return nil, fmt.Errorf("failed to connect to %s: status %d: %w", utils.MaskURL(target), resp.StatusCode, err)
		}
		d.logger.Error("%s : failed to connect to %s: %v", d.name, utils.MaskURL(target), err)
		return nil, fmt.Errorf("failed to connect to %s: %w", utils.MaskURL(target), err)
	}

	d.logger.Debug("%s : WebSocket connected to %s", d.name, utils.MaskURL(target))
	return &wsConnection{conn: conn}, nil
}

// -----------------------------------------------------------------------------

// ToWebSocketURL maps http:// to ws:// and https:// to wss://, other URLs are returned as is
func ToWebSocketURL(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// wsConnection adapts a Gorilla connection to IStreamConnection
type wsConnection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// -----------------------------------------------------------------------------

// SendFrame writes one frame; Gorilla flushes each message
func (c *wsConnection) SendFrame(frame models.MFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var err error
	switch frame.Type {
	case models.FrameText:
		err = c.conn.WriteMessage(websocket.TextMessage, frame.Data)
	case models.FrameBinary:
		err = c.conn.WriteMessage(websocket.BinaryMessage, frame.Data)
	case models.FrameClose:
		msg := websocket.FormatCloseMessage(frame.CloseCode, string(frame.Data))
		err = c.conn.WriteMessage(websocket.CloseMessage, msg)
	default:
		return fmt.Errorf("unsupported frame type %d", frame.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ReadFrame returns the next data frame, or a FrameClose when the peer sent a
// close frame. A dropped connection (1006, never sent on the wire) is an error.
func (c *wsConnection) ReadFrame() (models.MFrame, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
			return models.MFrame{Type: models.FrameClose, Data: []byte(closeErr.Text), CloseCode: closeErr.Code}, nil
		}
		return models.MFrame{}, fmt.Errorf("read message error: %w", err)
	}

	switch messageType {
	case websocket.BinaryMessage:
		return models.MFrame{Type: models.FrameBinary, Data: data}, nil
	default:
		return models.MFrame{Type: models.FrameText, Data: data}, nil
	}
}

// -----------------------------------------------------------------------------

// Close closes the underlying connection once
func (c *wsConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
