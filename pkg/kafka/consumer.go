// Package kafka provides the JSON producer and group consumer used for
// content-change notifications and search analytics, backed by
// segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is invoked for each message. A returned error leaves the
// message uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and dispatches each message
// to a MessageHandler.
type Consumer struct {
	reader       messageReader
	handler      MessageHandler
	fetchBackoff time.Duration
	logger       *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a Consumer in the configured consumer group.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return NewGroupConsumer(cfg, topic, cfg.ConsumerGroup, handler)
}

// NewGroupConsumer is NewConsumer with an explicit group ID. Every search
// replica must see every content change, so each one consumes that topic in
// its own group.
func NewGroupConsumer(cfg config.KafkaConfig, topic, groupID string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	c := newConsumer(r, handler)
	c.logger = c.logger.With("topic", topic, "group", groupID)
	return c
}

func newConsumer(r messageReader, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:       r,
		handler:      handler,
		fetchBackoff: time.Second,
		logger:       slog.Default().With("component", "kafka-consumer"),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err, "retry_in", c.fetchBackoff)
			select {
			case <-time.After(c.fetchBackoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			log.Error("failed to process message", "key", string(msg.Key), "error", err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error("failed to commit message", "error", err)
		}
	}
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
