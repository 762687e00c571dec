package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
	"stockflow/pkg/logger"
	"stockflow/pkg/webhook"
	"stockflow/pkg/webhook/memory"
)

type inbox struct {
	mu   sync.Mutex
	got  []webhook.Envelope
	fail bool
}

func (in *inbox) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if in.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		var env webhook.Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			t.Errorf("decode envelope: %v", err)
		}
		in.mu.Lock()
		in.got = append(in.got, env)
		in.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (in *inbox) envelopes() []webhook.Envelope {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]webhook.Envelope(nil), in.got...)
}

func TestDispatcherFansOutToMatchingSubscribers(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	subs := webhook.NewSubscriptionService(repo)

	all, stockOnly, broken := &inbox{}, &inbox{}, &inbox{fail: true}
	if _, err := subs.Create(ctx, broken.server(t).URL, nil); err != nil {
		t.Fatalf("subscribe broken: %v", err)
	}
	if _, err := subs.Create(ctx, all.server(t).URL, nil); err != nil {
		t.Fatalf("subscribe all: %v", err)
	}
	if _, err := subs.Create(ctx, stockOnly.server(t).URL, []event.Type{"stock_changed"}); err != nil {
		t.Fatalf("subscribe stock: %v", err)
	}

	d := webhook.NewDispatcher(repo, webhook.NewHTTPSender(2*time.Second), logger.NewNop())
	d.Publish(ctx,
		event.New(event.StockChanged, map[string]any{"type": "WATER", "delta": -15, "remaining": 85}),
		event.New(event.SaleToSellerCreated, map[string]any{"saleId": "s1"}),
	)

	if n := len(all.envelopes()); n != 2 {
		t.Fatalf("expected 2 deliveries to unfiltered subscriber, got %d", n)
	}
	got := stockOnly.envelopes()
	if len(got) != 1 || got[0].EventType != event.StockChanged {
		t.Fatalf("expected only the stock event, got %+v", got)
	}
	if got[0].Payload["type"] != "WATER" || got[0].Payload["remaining"] != float64(85) {
		t.Fatalf("unexpected payload %v", got[0].Payload)
	}
	if _, err := time.Parse(time.RFC3339, got[0].Timestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %q", got[0].Timestamp)
	}
}

func TestDispatcherWithoutSubscribers(t *testing.T) {
	sender := &countingSender{}
	d := webhook.NewDispatcher(memory.New(), sender, logger.NewNop())
	d.Publish(context.Background(), event.New(event.StockChanged, nil))
	if sender.count() != 0 {
		t.Fatalf("expected no sends, got %d", sender.count())
	}
}

type brokenRepo struct{ *memory.Repository }

func (brokenRepo) ListActive(context.Context) ([]webhook.Subscription, error) {
	return nil, errors.New("connection refused")
}

func TestDispatcherSwallowsStorageFailure(t *testing.T) {
	sender := &countingSender{}
	d := webhook.NewDispatcher(brokenRepo{memory.New()}, sender, logger.NewNop())
	d.Publish(context.Background(), event.New(event.StockChanged, nil))
	if sender.count() != 0 {
		t.Fatalf("expected no sends, got %d", sender.count())
	}
}

type countingSender struct {
	mu    sync.Mutex
	urls  []string
	block chan struct{}
}

func (s *countingSender) Send(_ context.Context, url string, _ []byte) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	return nil
}

func (s *countingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func TestQueueDropsWhenFull(t *testing.T) {
	sender := &countingSender{}
	q := webhook.NewQueue(sender, 2, 2, logger.NewNop())
	for i := 0; i < 5; i++ {
		if err := q.Send(context.Background(), "http://example.invalid/hook", []byte("{}")); err != nil {
			t.Fatalf("send must not fail: %v", err)
		}
	}
	if q.Dropped() != 3 || q.Pending() != 2 {
		t.Fatalf("expected 3 dropped and 2 pending, got %d and %d", q.Dropped(), q.Pending())
	}

	q.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !q.Drain(ctx) {
		t.Fatal("queue did not drain")
	}
	q.Stop()
	if sender.count() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", sender.count())
	}

	// sends after stop are discarded
	q.Send(context.Background(), "http://example.invalid/hook", []byte("{}"))
	if q.Pending() != 0 {
		t.Fatalf("expected nothing pending after stop, got %d", q.Pending())
	}
}

func TestQueueDoesNotBlockPublisher(t *testing.T) {
	sender := &countingSender{block: make(chan struct{})}
	q := webhook.NewQueue(sender, 1, 4, logger.NewNop())
	q.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			q.Send(context.Background(), "http://example.invalid/hook", nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a stuck subscriber")
	}
	close(sender.block)
	q.Stop()
	if sender.count()+int(q.Dropped()) != 10 {
		t.Fatalf("expected every send delivered or dropped, got %d + %d", sender.count(), q.Dropped())
	}
}

func TestHTTPSenderDeliversWhateverTheStatus(t *testing.T) {
	var got atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	sender := webhook.NewHTTPSender(time.Second)
	if err := sender.Send(context.Background(), srv.URL, []byte("{}")); err != nil {
		t.Fatalf("a 502 answer is still a delivery, got %v", err)
	}
	if got.Load() != 1 {
		t.Fatalf("expected one request, got %d", got.Load())
	}

	srv.Close()
	if err := sender.Send(context.Background(), srv.URL, []byte("{}")); err == nil {
		t.Fatal("expected an error when nothing listens")
	}
}

func TestSubscriptionService(t *testing.T) {
	ctx := context.Background()
	svc := webhook.NewSubscriptionService(memory.New())

	for _, u := range []string{"", "   ", "not a url", "ftp://example.com/hook", "/relative"} {
		if _, err := svc.Create(ctx, u, nil); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("%q: expected invalid argument, got %v", u, err)
		}
	}
	if _, err := svc.Create(ctx, "https://example.com/hook", []event.Type{"ORDER_SHIPPED"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown type, got %v", err)
	}

	sub, err := svc.Create(ctx, "https://example.com/hook", []event.Type{event.StockChanged, event.StockChanged})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sub.Active || sub.ID == "" || sub.CreatedAt.IsZero() || len(sub.EventTypes) != 1 {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if _, err := svc.Create(ctx, "https://example.com/hook", nil); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if err := svc.Delete(ctx, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, sub.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubscriptionMatches(t *testing.T) {
	s := webhook.Subscription{EventTypes: []event.Type{event.SaleFromSellerCreated}}
	if s.Matches(event.StockChanged) || !s.Matches(event.SaleFromSellerCreated) {
		t.Fatal("filter not applied")
	}
	if !(webhook.Subscription{}).Matches(event.StockChanged) {
		t.Fatal("empty filter must match everything")
	}
}
