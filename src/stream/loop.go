package stream

import (
	"context"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/utils"
)

// -----------------------------------------------------------------------------

// EventHandler receives every data frame. Returning an error stops the loop
// and Run returns that error unchanged.
type EventHandler func(event *models.MStreamEvent) error

// -----------------------------------------------------------------------------

// Loop drives one connection: optional initial frame, then reads until close
type Loop struct {
	Name   string
	Logger *logger.Logger
	Dialer interfaces.IStreamDialer
	// Now stamps received events; defaults to time.Now
	Now func() time.Time
}

// -----------------------------------------------------------------------------

// Run connects to url, sends initial (when non-nil) before the first read and
// dispatches frames to onEvent. It returns nil on a close frame, ctx.Err() when
// the context ends, and a *TransportError on any connection failure. It never reconnects.
func (l *Loop) Run(ctx context.Context, url string, initial *models.MFrame, onEvent EventHandler) error {
	log := l.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	now := l.Now
	if now == nil {
		now = time.Now
	}
	masked := utils.MaskURL(url)

	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := l.Dialer.Dial(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Error("%s : failed to connect to %s: %v", l.Name, masked, err)
		return &TransportError{Op: "dial", URL: masked, Err: err}
	}
	log.Info("%s : %s stream connected to %s", l.Name, l.Dialer.GetType(), masked)

	// Closing the connection is what unblocks a pending read on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	if initial != nil {
		if err := conn.SendFrame(*initial); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error("%s : failed to send initial frame: %v", l.Name, err)
			return &TransportError{Op: "send", URL: masked, Err: err}
		}
		log.Debug("%s : initial frame sent (%d bytes)", l.Name, len(initial.Data))
	}

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Info("%s : stream cancelled", l.Name)
				return ctxErr
			}
			log.Error("%s : read error: %v", l.Name, err)
			return &TransportError{Op: "read", URL: masked, Err: err}
		}

		var event *models.MStreamEvent
		switch frame.Type {
		case models.FrameClose:
			log.Info("%s : stream closed by peer (code %d)", l.Name, frame.CloseCode)
			return nil
		case models.FrameText:
			event = &models.MStreamEvent{
				Kind:       models.EventText,
				Text:       string(frame.Data),
				Size:       len(frame.Data),
				ReceivedAt: now(),
			}
		case models.FrameBinary:
			log.Debug("%s : binary frame of %d bytes", l.Name, len(frame.Data))
			event = &models.MStreamEvent{
				Kind:       models.EventBinary,
				Size:       len(frame.Data),
				ReceivedAt: now(),
			}
		default:
			log.Warning("%s : ignoring frame of unknown type %d", l.Name, frame.Type)
			continue
		}

		if onEvent == nil {
			continue
		}
		if err := onEvent(event); err != nil {
			log.Info("%s : handler stopped the stream: %v", l.Name, err)
			return err
		}
	}
}
