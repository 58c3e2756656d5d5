// Package publisher writes documents to the content store and announces each
// write as a content change so the search index rebuilds.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/kafka"
)

// Notifier announces content changes.
type Notifier interface {
	Notify(ctx context.Context, event content.ChangeEvent) error
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

var _ EventPublisher = (*kafka.Producer)(nil)

// KafkaNotifier publishes change events to the content-changes topic, keyed
// by action. Every search replica consumes them and rebuilds.
type KafkaNotifier struct {
	producer EventPublisher
}

func NewKafkaNotifier(producer EventPublisher) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event content.ChangeEvent) error {
	return n.producer.PublishBatch(ctx, []kafka.Event{{Key: event.Action, Value: event}})
}

// Rebuilder is satisfied by *indexer.Engine.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*index.SearchIndex, error)
}

// RebuildNotifier rebuilds a local index directly when no broker is
// configured. The rebuild runs in the background and outlives the request.
type RebuildNotifier struct {
	rebuilder Rebuilder
	logger    *slog.Logger
}

func NewRebuildNotifier(r Rebuilder) *RebuildNotifier {
	return &RebuildNotifier{
		rebuilder: r,
		logger:    slog.Default().With("component", "rebuild-notifier"),
	}
}

func (n *RebuildNotifier) Notify(ctx context.Context, event content.ChangeEvent) error {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if _, err := n.rebuilder.Rebuild(ctx); err != nil {
			n.logger.Warn("rebuild after content change failed",
				"action", event.Action,
				"documents", len(event.DocumentIDs),
				"error", err,
			)
		}
	}()
	return nil
}

// Publisher coordinates document persistence and change notification.
type Publisher struct {
	store    content.Writer
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher writing to store and announcing through notifier.
func New(store content.Writer, notifier Notifier) *Publisher {
	return &Publisher{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest stores docs and announces them. A failed notification is logged,
// not returned: the documents are stored and the periodic refresh picks
// them up.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	docs := make([]content.Document, len(req.Documents))
	ids := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		d.ID = strings.TrimSpace(d.ID)
		d.Status = strings.ToLower(strings.TrimSpace(d.Status))
		docs[i] = d
		ids[i] = d.ID
	}
	if err := p.store.Put(ctx, docs); err != nil {
		return nil, fmt.Errorf("storing documents: %w", err)
	}

	resp := &ingestion.IngestResponse{
		Accepted: len(docs),
		IDs:      ids,
		Status:   ingestion.StatusAccepted,
	}
	if err := p.notify(ctx, content.ActionUpserted, ids); err != nil {
		resp.Status = ingestion.StatusPending
	}
	return resp, nil
}

// Delete removes a document and announces the removal.
func (p *Publisher) Delete(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	_ = p.notify(ctx, content.ActionDeleted, []string{id})
	return nil
}

func (p *Publisher) notify(ctx context.Context, action string, ids []string) error {
	if p.notifier == nil {
		return nil
	}
	event := content.ChangeEvent{DocumentIDs: ids, Action: action, ChangedAt: p.now().UTC()}
	if err := p.notifier.Notify(ctx, event); err != nil {
		p.logger.Error("failed to announce content change, index will catch up on refresh",
			"action", action,
			"documents", len(ids),
			"error", err,
		)
		return err
	}
	return nil
}
