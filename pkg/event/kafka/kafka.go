// Package kafka mirrors domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"stockflow/pkg/event"
	"stockflow/pkg/logger"
)

// MessageWriter is the subset of *kafkago.Writer used by Sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Sink publishes each event as one JSON message keyed by event type.
// Write failures are logged and dropped.
type Sink struct {
	w   MessageWriter
	log *logger.Logger
}

// NewWriter builds an async writer for topic.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
	}
}

// New creates a Sink over w.
func New(w MessageWriter, log *logger.Logger) *Sink {
	return &Sink{w: w, log: log}
}

// Publish implements event.Publisher.
func (s *Sink) Publish(ctx context.Context, events ...event.Event) {
	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			s.log.Warn(ctx, "kafka: encode event", "event_type", ev.Type, "error", err)
			continue
		}
		carrier := headerCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, &carrier)
		msgs = append(msgs, kafkago.Message{
			Key:     []byte(ev.Type),
			Value:   body,
			Time:    ev.OccurredAt,
			Headers: carrier.headers,
		})
	}
	if len(msgs) == 0 {
		return
	}
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		s.log.Warn(ctx, "kafka: write events", "count", len(msgs), "error", err)
	}
}

// Close flushes and closes the writer.
func (s *Sink) Close() error { return s.w.Close() }

type headerCarrier struct {
	headers []kafkago.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range c.headers {
		if h.Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafkago.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
