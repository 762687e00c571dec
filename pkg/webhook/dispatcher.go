package webhook

import (
	"context"
	"encoding/json"

	"stockflow/pkg/event"
	"stockflow/pkg/logger"
)

// Dispatcher is an event.Publisher posting events to matching subscriptions.
// Failures are logged and never reach the caller.
type Dispatcher struct {
	subs   Repository
	sender Sender
	log    *logger.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(subs Repository, sender Sender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{subs: subs, sender: sender, log: log}
}

// Publish delivers every event to each active subscription that matches it.
func (d *Dispatcher) Publish(ctx context.Context, events ...event.Event) {
	if len(events) == 0 {
		return
	}
	subs, err := d.subs.ListActive(ctx)
	if err != nil {
		d.log.Error(ctx, "load webhook subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}
	for _, ev := range events {
		body, err := json.Marshal(NewEnvelope(ev))
		if err != nil {
			d.log.Error(ctx, "encode webhook envelope", "event_type", ev.Type, "error", err)
			continue
		}
		for _, s := range subs {
			if !s.Matches(ev.Type) {
				continue
			}
			if err := d.sender.Send(ctx, s.TargetURL, body); err != nil {
				d.log.Warn(ctx, "webhook delivery failed",
					"subscription_id", s.ID, "target_url", s.TargetURL, "event_type", ev.Type, "error", err)
			}
		}
	}
}
