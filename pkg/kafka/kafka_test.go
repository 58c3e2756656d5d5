package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeEvent struct {
	DocumentIDs []string  `json:"document_ids"`
	Action      string    `json:"action"`
	ChangedAt   time.Time `json:"changed_at"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[changeEvent]([]byte(`{"document_ids":["abc"],"action":"upsert","changed_at":"2026-01-01T00:00:00Z"}`))

	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, got.DocumentIDs)
	assert.Equal(t, 2026, got.ChangedAt.Year())
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON[changeEvent]([]byte(`{`))

	assert.ErrorContains(t, err, "decoding kafka message")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishBatchEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "content-changes")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "upsert", Value: changeEvent{DocumentIDs: []string{"1", "2"}, Action: "upsert"}},
		{Key: "delete", Value: changeEvent{DocumentIDs: []string{"3"}, Action: "delete"}},
	})

	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "upsert", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"document_ids":["1","2"]`)
	assert.Equal(t, "application/json", string(w.msgs[1].Headers[0].Value))
}

func TestProducer_EncodeFailureWritesNothing(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "search-analytics")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "ok", Value: "fine"},
		{Key: "bad", Value: func() {}},
	})

	assert.ErrorContains(t, err, `encoding event 1 (key "bad")`)
	assert.Empty(t, w.msgs)
}

func TestProducer_WriteErrorNamesTopic(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "search-analytics")

	err := p.Publish(context.Background(), Event{Key: "q", Value: 1})

	assert.ErrorContains(t, err, "publishing 1 event(s) to search-analytics")
}

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	closes    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

func (r *fakeReader) snapshot() ([]int64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...), r.closes
}

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	// Given three messages, the second of which the handler rejects
	r := &fakeReader{
		fetchErrs: []error{errors.New("leader not available")},
		queue: []kafka.Message{
			{Offset: 1, Value: []byte("a")},
			{Offset: 2, Value: []byte("fail")},
			{Offset: 3, Value: []byte("c")},
		},
	}
	var mu sync.Mutex
	var seen []string
	c := newConsumer(r, func(_ context.Context, _ []byte, value []byte) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(value))
		if string(value) == "fail" {
			return errors.New("rebuild failed")
		}
		return nil
	})
	c.fetchBackoff = time.Millisecond

	// When the consumer runs until the queue drains
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	require.Eventually(t, func() bool {
		committed, _ := r.snapshot()
		return len(committed) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	// Then every message was handled, the failed one left uncommitted, and
	// the reader closed exactly once even with an extra Close
	require.NoError(t, <-done)
	require.NoError(t, c.Close())
	committed, closes := r.snapshot()
	assert.Equal(t, []int64{1, 3}, committed)
	assert.Equal(t, 1, closes)
	mu.Lock()
	assert.Equal(t, []string{"a", "fail", "c"}, seen)
	mu.Unlock()
}
