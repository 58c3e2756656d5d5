package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/kafka"
)

// Publisher delivers a batch of events. *kafka.Producer publishes to the
// analytics topic; *Aggregator records them in process.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

var (
	_ Publisher = (*kafka.Producer)(nil)
	_ Publisher = (*Aggregator)(nil)
)

// Collector buffers events off the request path and publishes them in
// batches, when a batch fills up or every flush interval.
type Collector struct {
	publisher     Publisher
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	dropped  atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, then publishes whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go c.loop(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track queues an event without blocking. Events are dropped when the
// buffer is full.
func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- kafka.Event{Key: partitionKey(event), Value: event}:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops the loop and waits for the final flush.
func (c *Collector) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Collector) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	for {
		select {
		case ev := <-c.eventCh:
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				batch = c.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = c.flush(ctx, batch)
		case <-ctx.Done():
			c.shutdown(batch)
			return
		case <-c.stop:
			c.shutdown(batch)
			return
		}
	}
}

func (c *Collector) shutdown(batch []kafka.Event) {
drain:
	for {
		select {
		case ev := <-c.eventCh:
			batch = append(batch, ev)
		default:
			break drain
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rest := c.flush(ctx, batch); len(rest) > 0 {
		c.dropped.Add(int64(len(rest)))
		c.logger.Warn("analytics events lost on shutdown", "count", len(rest))
	}
}

// flush publishes batch and returns what must be retried. Failed events are
// kept up to three batches' worth; older ones are dropped.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics batch publish failed", "batch_size", len(batch), "error", err)
		if limit := c.batchSize * 3; len(batch) > limit {
			dropped := len(batch) - limit
			c.dropped.Add(int64(dropped))
			c.logger.Warn("analytics buffer overflow, events dropped", "dropped", dropped)
			batch = append([]kafka.Event(nil), batch[dropped:]...)
		}
		return batch
	}
	c.logger.Debug("analytics batch published", "events", len(batch))
	return make([]kafka.Event, 0, c.batchSize)
}
