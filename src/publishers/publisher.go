package publishers

import (
	"fmt"
	"strings"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

// NewPublisher returns the publisher selected by config.Type (nats, kafka, none)
func NewPublisher(config *models.MPublisherConfig, logger *logger.Logger, serializer interfaces.ISerializer) (interfaces.IPublisher, error) {
	switch strings.ToLower(config.Type) {
	case "nats":
		return NewNATSPublisher(&config.NATS, logger, serializer), nil
	case "kafka":
		return NewKafkaPublisher(&config.Kafka, logger, serializer, ""), nil
	case "", "none":
		return NewNopPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher type '%s'", config.Type)
	}
}

// -----------------------------------------------------------------------------

// EventSubject is the routing subject of events of one session kind, without prefix
func EventSubject(kind models.MSessionKind) string {
	return fmt.Sprintf("%s.events", kind)
}

// -----------------------------------------------------------------------------
// NopPublisher
// -----------------------------------------------------------------------------

// NopPublisher only logs events at DEBUG
type NopPublisher struct {
	logger *logger.Logger
}

func NewNopPublisher(logger *logger.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) OnStreamEvent(kind models.MSessionKind, event *models.MStreamEvent) {
	p.logger.Debug("nop-publisher : %s %s event (%d bytes)", kind, event.Kind, event.Size)
}

func (p *NopPublisher) Connect() error    { return nil }
func (p *NopPublisher) Disconnect() error { return nil }
func (p *NopPublisher) IsConnected() bool { return true }
func (p *NopPublisher) GetName() string   { return "nop-publisher" }

// -----------------------------------------------------------------------------

// clientName falls back to <prefix>-<uuid> when no name is configured
func clientName(name, prefix string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func joinServers(servers []string) string {
	return strings.Join(servers, ",")
}

func orDefault[T int | int64 | time.Duration](value, fallback T) T {
	if value == 0 {
		return fallback
	}
	return value
}
