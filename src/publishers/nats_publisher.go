package publishers

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	"github.com/nats-io/nats.go"
)

// -----------------------------------------------------------------------------
// NATSPublisher forwards stream events to NATS core or JetStream
// -----------------------------------------------------------------------------

type NATSPublisher struct {
	name   string
	config *models.MNATSConfig
	logger *logger.Logger

	useJetStream bool

	mu sync.RWMutex

	nc         *nats.Conn             // NATS core connection
	js         nats.JetStreamContext  // JetStream context (if enabled)
	serializer interfaces.ISerializer // serialize events before sending

	newJetStream func(*nats.Conn) (nats.JetStreamContext, error)

	connected atomic.Bool
	published atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewNATSPublisher creates a new NATS publisher instance
func NewNATSPublisher(config *models.MNATSConfig, logger *logger.Logger, serializer interfaces.ISerializer) *NATSPublisher {
	return &NATSPublisher{
		name:       clientName(config.ClientID, "nats"),
		config:     config,
		logger:     logger,
		serializer: serializer,

		newJetStream: func(nc *nats.Conn) (nats.JetStreamContext, error) { return nc.JetStream() },
	}
}

// -----------------------------------------------------------------------------

// OnStreamEvent publishes the event envelope on <prefix>.<kind>.events
func (np *NATSPublisher) OnStreamEvent(kind models.MSessionKind, event *models.MStreamEvent) {
	subject := EventSubject(kind)

	data, err := np.serializer.Marshal(event)
	if err != nil {
		np.logger.Error("%s : failed to serialize %s event for %s: %v", np.name, event.Kind, subject, err)
		return
	}

	msg := np.newEventMsg(subject, event.Kind, data)
	if np.useJetStream {
		err = np.publishJetStreamMsg(msg)
	} else {
		err = np.publishMsg(msg)
	}
	if err != nil {
		np.logger.Error("%s : failed to publish %s event to NATS subject %s: %v", np.name, event.Kind, msg.Subject, err)
		return
	}
	np.published.Add(1)
}

// -----------------------------------------------------------------------------

// newEventMsg wraps an encoded event with its content type and kind headers
func (np *NATSPublisher) newEventMsg(subject string, kind models.MEventKind, data []byte) *nats.Msg {
	msg := nats.NewMsg(np.getSubject(subject))
	msg.Data = data
	msg.Header.Set("Content-Type", np.serializer.ContentType())
	msg.Header.Set("Event-Kind", string(kind))
	return msg
}

func (np *NATSPublisher) publishMsg(msg *nats.Msg) error {
	if !np.IsConnected() {
		return fmt.Errorf("nats client not connected")
	}
	return np.nc.PublishMsg(msg)
}

func (np *NATSPublisher) publishJetStreamMsg(msg *nats.Msg) error {
	if !np.IsConnected() {
		return fmt.Errorf("nats client not connected")
	}
	if np.js == nil {
		return fmt.Errorf("jetstream is not initialized or enabled")
	}
	if _, err := np.js.PublishMsg(msg); err != nil {
		return fmt.Errorf("jetstream publish failed for %s: %w", msg.Subject, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Connect establishes connection to NATS and sets up JetStream if configured
func (np *NATSPublisher) Connect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc != nil && np.nc.IsConnected() {
		return nil
	}
	if len(np.config.Servers) == 0 {
		return fmt.Errorf("no NATS servers configured")
	}

	opts := []nats.Option{
		nats.Name(np.name),
		nats.Timeout(orDefault(np.config.ConnectTimeout, 5*time.Second)),
		nats.ReconnectWait(orDefault(np.config.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(np.config.MaxReconnects),
		nats.FlusherTimeout(orDefault(np.config.FlushTimeout, 10*time.Second)),

		nats.ClosedHandler(func(nc *nats.Conn) {
			np.logger.Warning("%s : NATS connection closed", np.name)
			np.connected.Store(false)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			np.logger.Warning("%s : NATS disconnected, attempting reconnect: %v", np.name, err)
			np.connected.Store(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			np.logger.Info("%s : NATS successfully reconnected to %s", np.name, nc.ConnectedUrl())
			np.connected.Store(true)
		}),
	}

	nc, err := nats.Connect(joinServers(np.config.Servers), opts...)
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}

	var js nats.JetStreamContext
	if np.config.JetStream != nil && np.config.JetStream.Enabled {
		if js, err = np.newJetStream(nc); err != nil {
			nc.Close()
			np.connected.Store(false)
			return fmt.Errorf("jetstream context creation failed: %w", err)
		}
	}

	np.nc = nc
	np.js = js
	np.connected.Store(true)
	np.logger.Info("%s : successfully connected to NATS at %s", np.name, nc.ConnectedUrl())

	if js != nil {
		np.useJetStream = true
		np.logger.Info("%s : publishing stream events through JetStream", np.name)

		if err := np.ensureStreamExists(); err != nil {
			np.logger.Warning("%s : failed to ensure stream exists: %v (continuing anyway)", np.name, err)
		}
	} else {
		np.useJetStream = false
		np.logger.Info("%s : publishing stream events through NATS core", np.name)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ensureStreamExists creates the configured JetStream stream when it is missing
func (np *NATSPublisher) ensureStreamExists() error {
	streamName := np.config.JetStream.StreamName
	if streamName == "" {
		return fmt.Errorf("stream name not configured")
	}

	if info, err := np.js.StreamInfo(streamName); err == nil {
		np.logger.Info("%s : JetStream stream '%s' already exists with %d subjects", np.name, streamName, len(info.Config.Subjects))
		return nil
	}

	if _, err := np.js.AddStream(np.streamConfig()); err != nil {
		return fmt.Errorf("failed to create stream '%s': %w", streamName, err)
	}

	np.logger.Info("%s : created JetStream stream '%s'", np.name, streamName)
	return nil
}

// -----------------------------------------------------------------------------

// streamConfig derives the JetStream stream settings. Without explicit
// subjects the stream captures every event subject under the prefix.
func (np *NATSPublisher) streamConfig() *nats.StreamConfig {
	js := np.config.JetStream

	maxAge := js.MaxAge
	if maxAge == 0 {
		maxAge = 24 * time.Hour
	}
	subjects := js.Subjects
	if len(subjects) == 0 {
		subjects = []string{np.getSubject("*.events")}
	}
	replicas := js.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	return &nats.StreamConfig{
		Name:       js.StreamName,
		Subjects:   subjects,
		Retention:  nats.LimitsPolicy,
		Storage:    nats.FileStorage,
		Replicas:   replicas,
		MaxAge:     maxAge,
		MaxMsgs:    orDefault(js.MaxMsgs, -1),
		MaxBytes:   orDefault(js.MaxBytes, -1),
		MaxMsgSize: int32(orDefault(js.MaxMsgSize, -1)),
		Discard:    nats.DiscardOld,
	}
}

// -----------------------------------------------------------------------------

// Disconnect drains pending messages and closes the NATS connection
func (np *NATSPublisher) Disconnect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc == nil || np.nc.IsClosed() {
		return nil
	}

	if err := np.nc.Flush(); err != nil {
		np.logger.Warning("%s : flush before close failed: %v", np.name, err)
	}
	np.nc.Close()
	np.connected.Store(false)
	np.logger.Info("%s : NATS connection closed after %d events", np.name, np.published.Load())
	return nil
}

// -----------------------------------------------------------------------------

// IsConnected returns connection status
func (np *NATSPublisher) IsConnected() bool {
	return np.connected.Load()
}

// -----------------------------------------------------------------------------

// GetName returns client identifier
func (np *NATSPublisher) GetName() string {
	return np.name
}

// -----------------------------------------------------------------------------

// getSubject prepends the configured subject prefix if it exists
func (np *NATSPublisher) getSubject(subject string) string {
	if np.config.SubjectPrefix != "" {
		return fmt.Sprintf("%s.%s", np.config.SubjectPrefix, subject)
	}
	return subject
}
