package adapter

import "context"

type SubscriptionState string

const (
	SubscriptionStateActive  SubscriptionState = "active"
	SubscriptionStatePaused  SubscriptionState = "paused"
	SubscriptionStateUnknown SubscriptionState = "unknown"
)

// SubscriptionControl is the port for the external pause/resume service.
// Both calls are remote, fallible and possibly slow; implementations apply
// a bounded timeout and retry transient failures with backoff, returning
// domain.ErrUpstreamUnavailable (transient, retries exhausted) or
// domain.ErrUpstreamRejected (permanent, no retry).
type SubscriptionControl interface {
	Name() string
	Pause(ctx context.Context, subscriptionID string) error
	Resume(ctx context.Context, subscriptionID string) error
	// Status reports the current remote state; used by the reconciler to
	// cross-check codes left unused after a successful resume.
	Status(ctx context.Context, subscriptionID string) (SubscriptionState, error)
}
