package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/ports"
)

// KafkaConfig configures the Kafka event publisher
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes domain events as JSON messages keyed by
// aggregate ID.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  logger.Logger
}

// NewPublisher returns a Kafka publisher when enabled, otherwise a no-op
func NewPublisher(cfg KafkaConfig, log logger.Logger) ports.EventPublisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info(context.Background(), "Event publishing disabled", nil)
		return NoopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	log.Info(context.Background(), "Kafka event publisher initialized", map[string]interface{}{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	})
	return newKafkaPublisher(writer, cfg.WriteTimeout, log)
}

func newKafkaPublisher(w messageWriter, timeout time.Duration, log logger.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{writer: w, timeout: timeout, logger: log}
}

// Publish writes one event to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, event ports.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug(ctx, "Event published", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event ports.Event) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }
