package webhook

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"stockflow/pkg/logger"
)

type delivery struct {
	ctx  context.Context
	url  string
	body []byte
}

// Queue is an asynchronous Sender: deliveries go into a bounded buffer drained
// by a fixed pool of workers. A full buffer drops the delivery. There is no retry.
type Queue struct {
	next    Sender
	log     *logger.Logger
	workers int
	ch      chan delivery

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	pending atomic.Int64
	dropped atomic.Uint64
}

// NewQueue creates a queue in front of next.
func NewQueue(next Sender, workers, size int, log *logger.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 64
	}
	return &Queue{next: next, log: log, workers: workers, ch: make(chan delivery, size)}
}

// Start launches the workers. They exit once Stop is called and the buffer is empty.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.log.Info(context.Background(), "webhook workers started", "worker_count", q.workers, "queue_size", cap(q.ch))
}

// Send enqueues a delivery without blocking. It never returns an error: a
// rejected delivery is logged instead.
func (q *Queue) Send(ctx context.Context, targetURL string, body []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn(ctx, "webhook queue closed, delivery dropped", "target_url", targetURL)
		return nil
	}
	// detach from the caller's cancellation but keep its trace
	d := delivery{
		ctx:  trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx)),
		url:  targetURL,
		body: body,
	}
	q.pending.Add(1)
	select {
	case q.ch <- d:
	default:
		q.pending.Add(-1)
		q.dropped.Add(1)
		q.log.Warn(ctx, "webhook queue full, delivery dropped", "target_url", targetURL, "queue_size", cap(q.ch))
	}
	return nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for d := range q.ch {
		if err := q.next.Send(d.ctx, d.url, d.body); err != nil {
			q.log.Warn(d.ctx, "webhook delivery failed", "target_url", d.url, "error", err)
		}
		q.pending.Add(-1)
	}
}

// Pending returns deliveries accepted but not yet attempted.
func (q *Queue) Pending() int { return int(q.pending.Load()) }

// Dropped returns how many deliveries were rejected because the buffer was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Drain blocks until every accepted delivery was attempted or ctx is done.
func (q *Queue) Drain(ctx context.Context) bool {
	for {
		if q.pending.Load() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Stop closes intake and waits for the workers to finish the buffer.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	q.wg.Wait()
}
