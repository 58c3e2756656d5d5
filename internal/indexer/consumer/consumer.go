// Package consumer reads content-change events from Kafka and triggers a full
// index rebuild for each one. Rebuilds triggered while another is running
// are coalesced by the engine.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/kafka"
)

// Rebuilder is satisfied by *indexer.Engine.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*index.SearchIndex, error)
}

// ChangeConsumer wraps a Kafka consumer subscribed to content changes.
type ChangeConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a ChangeConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *ChangeConsumer {
	return &ChangeConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "change-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (c *ChangeConsumer) Start(ctx context.Context) error {
	c.logger.Info("change consumer starting")
	return c.consumer.Start(ctx)
}

// HandleChange returns a Kafka MessageHandler that rebuilds the index for
// every content-change event. Undecodable messages are logged and skipped;
// a failed rebuild is returned so the message is not committed.
func HandleChange(r Rebuilder) kafka.MessageHandler {
	logger := slog.Default().With("component", "change-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[content.ChangeEvent](value)
		if err != nil {
			logger.Error("failed to decode change event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("content changed",
			"documents", len(event.DocumentIDs),
			"action", event.Action,
		)
		idx, err := r.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuilding after %s of %d documents: %w", event.Action, len(event.DocumentIDs), err)
		}
		logger.Info("index rebuilt after content change",
			"documents", len(event.DocumentIDs),
			"action", event.Action,
			"generation", idx.Generation(),
		)
		return nil
	}
}
