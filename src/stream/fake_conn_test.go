package stream

import (
	"context"
	"errors"
	"sync"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/models"
)

// -----------------------------------------------------------------------------

type readResult struct {
	frame models.MFrame
	err   error
}

// fakeConn replays scripted reads and records every call in order
type fakeConn struct {
	mu      sync.Mutex
	reads   chan readResult
	closed  chan struct{}
	once    sync.Once
	calls   []string
	sent    []models.MFrame
	sendErr error
}

func newFakeConn(results ...readResult) *fakeConn {
	c := &fakeConn{
		reads:  make(chan readResult, len(results)),
		closed: make(chan struct{}),
	}
	for _, r := range results {
		c.reads <- r
	}
	return c
}

func (c *fakeConn) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeConn) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConn) SendFrame(frame models.MFrame) error {
	c.record("send")
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	c.sent = append(c.sent, frame)
	c.mu.Unlock()
	return nil
}

// ReadFrame blocks once the script is exhausted until Close is called
func (c *fakeConn) ReadFrame() (models.MFrame, error) {
	c.record("read")
	select {
	case r := <-c.reads:
		return r.frame, r.err
	case <-c.closed:
		return models.MFrame{}, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.record("close")
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------

type fakeDialer struct {
	conn *fakeConn
	err  error
	url  string
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (interfaces.IStreamConnection, error) {
	d.url = url
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) GetType() string { return "fake" }

func text(s string) readResult {
	return readResult{frame: models.MFrame{Type: models.FrameText, Data: []byte(s)}}
}

func closeFrame() readResult {
	return readResult{frame: models.MFrame{Type: models.FrameClose, CloseCode: 1000}}
}
