package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Event is the unit of data published to Kafka. Key picks the partition;
// Value is JSON-encoded.
type Event struct {
	Key   string
	Value any
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded events to one topic.
type Producer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewProducer creates a synchronous Producer for topic. Messages with the
// same key land on the same partition, so change events for one action and
// analytics events for one query stay ordered.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes a single event.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch encodes events and writes them in one call. Nothing is
// written if any event fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing %d event(s) to %s: %w", len(msgs), p.topic, err)
	}
	p.logger.Debug("published", "count", len(msgs))
	return nil
}

var jsonHeader = kafka.Header{Key: "content-type", Value: []byte("application/json")}

func encode(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for i, e := range events {
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding event %d (key %q): %w", i, e.Key, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(e.Key),
			Value:   value,
			Headers: []kafka.Header{jsonHeader},
		})
	}
	return msgs, nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
