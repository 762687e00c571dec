package webhook

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
)

// SubscriptionService manages webhook registrations.
type SubscriptionService struct {
	repo Repository
	now  func() time.Time
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(repo Repository) *SubscriptionService {
	return &SubscriptionService{repo: repo, now: time.Now}
}

// Create registers an active subscription for targetURL. No event types means
// every event.
func (s *SubscriptionService) Create(ctx context.Context, targetURL string, types []event.Type) (Subscription, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return Subscription{}, apperr.New(apperr.KindInvalidArgument, "targetUrl is required")
	}
	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Subscription{}, apperr.New(apperr.KindInvalidArgument, "targetUrl must be an absolute http(s) url")
	}
	seen := make(map[event.Type]bool, len(types))
	filter := make([]event.Type, 0, len(types))
	for _, t := range types {
		t = event.Type(strings.ToUpper(strings.TrimSpace(string(t))))
		if !t.Valid() {
			return Subscription{}, apperr.New(apperr.KindInvalidArgument, "unknown event type: "+string(t))
		}
		if !seen[t] {
			seen[t] = true
			filter = append(filter, t)
		}
	}

	sub := Subscription{
		ID:         uuid.NewString(),
		TargetURL:  targetURL,
		Active:     true,
		EventTypes: filter,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return Subscription{}, apperr.Storage("save subscription", err)
	}
	return sub, nil
}

// List returns every subscription.
func (s *SubscriptionService) List(ctx context.Context) ([]Subscription, error) {
	out, err := s.repo.List(ctx)
	return out, apperr.Storage("list subscriptions", err)
}

// Delete removes a subscription.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "subscription not found: "+id)
	}
	return apperr.Storage("delete subscription", err)
}
