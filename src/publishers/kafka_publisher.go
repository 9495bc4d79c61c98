package publishers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	"github.com/segmentio/kafka-go"
)

// -----------------------------------------------------------------------------
// KafkaPublisher forwards stream events to a Kafka topic keyed by session kind
// -----------------------------------------------------------------------------

type KafkaPublisher struct {
	name       string
	config     *models.MKafkaConfig
	logger     *logger.Logger
	serializer interfaces.ISerializer

	mu     sync.RWMutex
	writer *kafka.Writer

	connected atomic.Bool
	published atomic.Uint64
	failed    atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewKafkaPublisher creates a new Kafka publisher instance
func NewKafkaPublisher(config *models.MKafkaConfig, logger *logger.Logger, serializer interfaces.ISerializer, name string) *KafkaPublisher {
	return &KafkaPublisher{
		name:       clientName(name, "kafka"),
		config:     config,
		logger:     logger,
		serializer: serializer,
	}
}

// -----------------------------------------------------------------------------

// OnStreamEvent queues the event envelope; delivery errors are logged by the writer callback
func (kp *KafkaPublisher) OnStreamEvent(kind models.MSessionKind, event *models.MStreamEvent) {
	msg, err := kp.buildMessage(kind, event)
	if err != nil {
		kp.logger.Error("%s : failed to serialize %s event: %v", kp.name, event.Kind, err)
		return
	}

	kp.mu.RLock()
	writer := kp.writer
	kp.mu.RUnlock()
	if writer == nil || !kp.IsConnected() {
		kp.logger.Error("%s : dropping %s event, kafka writer not connected", kp.name, event.Kind)
		return
	}

	// Async writer: returns once queued
	if err := writer.WriteMessages(context.Background(), msg); err != nil {
		kp.logger.Error("%s : failed to queue event on topic %s: %v", kp.name, kp.config.Topic, err)
	}
}

// -----------------------------------------------------------------------------

func (kp *KafkaPublisher) buildMessage(kind models.MSessionKind, event *models.MStreamEvent) (kafka.Message, error) {
	data, err := kp.serializer.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(kind),
		Value: data,
		Time:  event.ReceivedAt,
		Headers: []kafka.Header{
			{Key: "event_kind", Value: []byte(event.Kind)},
			{Key: "content_type", Value: []byte(kp.serializer.ContentType())},
		},
	}, nil
}

// -----------------------------------------------------------------------------

// Connect creates the writer. kafka-go dials lazily, so broker problems surface on first write.
func (kp *KafkaPublisher) Connect() error {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if kp.writer != nil {
		return nil
	}
	if len(kp.config.Brokers) == 0 || kp.config.Topic == "" {
		return fmt.Errorf("kafka brokers and topic must be configured")
	}

	kp.writer = &kafka.Writer{
		Addr:         kafka.TCP(kp.config.Brokers...),
		Topic:        kp.config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: orDefault(kp.config.BatchTimeout, 50*time.Millisecond),
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				kp.failed.Add(uint64(len(messages)))
				kp.logger.Error("%s : failed to deliver %d events to %s: %v", kp.name, len(messages), kp.config.Topic, err)
				return
			}
			kp.published.Add(uint64(len(messages)))
		},
	}
	kp.connected.Store(true)
	kp.logger.Info("%s : kafka writer ready for topic %s on %v", kp.name, kp.config.Topic, kp.config.Brokers)
	return nil
}

// -----------------------------------------------------------------------------

// Disconnect flushes pending batches and closes the writer
func (kp *KafkaPublisher) Disconnect() error {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if kp.writer == nil {
		return nil
	}
	kp.connected.Store(false)
	err := kp.writer.Close()
	kp.writer = nil
	if err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	kp.logger.Info("%s : kafka writer closed (%d delivered, %d failed)", kp.name, kp.published.Load(), kp.failed.Load())
	return nil
}

// -----------------------------------------------------------------------------

// IsConnected returns whether the writer is open
func (kp *KafkaPublisher) IsConnected() bool {
	return kp.connected.Load()
}

// -----------------------------------------------------------------------------

// GetName returns the publisher name
func (kp *KafkaPublisher) GetName() string {
	return kp.name
}
