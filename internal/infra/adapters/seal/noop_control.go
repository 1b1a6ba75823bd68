package seal

import (
	"context"
	"sync"

	"subscription-activation/internal/domain/ports/adapter"
)

var _ adapter.SubscriptionControl = (*NoopControl)(nil)

// NoopControl is an in-memory SubscriptionControl for dev mode. It tracks
// the last pause/resume per subscription so Status answers coherently.
type NoopControl struct {
	mu     sync.Mutex
	states map[string]adapter.SubscriptionState
}

func NewNoopControl() *NoopControl {
	return &NoopControl{states: make(map[string]adapter.SubscriptionState)}
}

func (n *NoopControl) Name() string { return "noop" }

func (n *NoopControl) Pause(ctx context.Context, subscriptionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states[subscriptionID] = adapter.SubscriptionStatePaused
	return nil
}

func (n *NoopControl) Resume(ctx context.Context, subscriptionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states[subscriptionID] = adapter.SubscriptionStateActive
	return nil
}

func (n *NoopControl) Status(ctx context.Context, subscriptionID string) (adapter.SubscriptionState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.states[subscriptionID]; ok {
		return s, nil
	}
	return adapter.SubscriptionStateUnknown, nil
}
