//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
)

type stubRepo struct {
	mu         sync.Mutex
	items      []*model.ActivationRecord
	lastFilter model.ActivationFilter
	marked     []string
	listErr    error
}

func (r *stubRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.ActivationRecord) error {
	return nil
}

func (r *stubRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationRecord, error) {
	return nil, domain.ErrNotFound
}

func (r *stubRepo) MarkUsed(ctx context.Context, tx repository.Tx, code, subscriptionID string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked = append(r.marked, code)
	return nil
}

func (r *stubRepo) List(ctx context.Context, tx repository.Tx, f model.ActivationFilter) ([]*model.ActivationRecord, model.ActivationTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	if r.listErr != nil {
		return nil, model.ActivationTotals{}, r.listErr
	}
	return r.items, model.ActivationTotals{Total: len(r.items)}, nil
}

type stubControl struct {
	states map[string]adapter.SubscriptionState
	errs   map[string]error
	calls  []string
}

func (c *stubControl) Name() string { return "stub" }

func (c *stubControl) Pause(ctx context.Context, subscriptionID string) error { return nil }

func (c *stubControl) Resume(ctx context.Context, subscriptionID string) error { return nil }

func (c *stubControl) Status(ctx context.Context, subscriptionID string) (adapter.SubscriptionState, error) {
	c.calls = append(c.calls, subscriptionID)
	if err := c.errs[subscriptionID]; err != nil {
		return adapter.SubscriptionStateUnknown, err
	}
	if st, ok := c.states[subscriptionID]; ok {
		return st, nil
	}
	return adapter.SubscriptionStateUnknown, nil
}

func record(code, subID string, age time.Duration) *model.ActivationRecord {
	return &model.ActivationRecord{
		Code:           code,
		SubscriptionID: subID,
		Status:         model.ActivationStatusUnused,
		IssuedAt:       time.Now().UTC().Add(-age),
	}
}

func newReconciler(repo *stubRepo, control *stubControl, repair bool) *ActivationReconciler {
	logger := zerolog.Nop()
	return NewActivationReconciler(repo, control, time.Minute, 24*time.Hour, 15*time.Minute, repair, &logger)
}

func TestReconcilerTick(t *testing.T) {
	t.Run("should only scan unused records inside the age window", func(t *testing.T) {
		repo := &stubRepo{}
		w := newReconciler(repo, &stubControl{}, false)

		w.tick(context.Background())

		f := repo.lastFilter
		if f.Status != model.ActivationStatusUnused {
			t.Errorf("expected unused filter, got %q", f.Status)
		}
		if f.IssuedFrom == nil || f.IssuedTo == nil {
			t.Fatal("expected both issued bounds to be set")
		}
		window := f.IssuedTo.Sub(*f.IssuedFrom)
		want := 24*time.Hour - 15*time.Minute
		if window < want-time.Second || window > want+time.Second {
			t.Errorf("expected a %v window, got %v", want, window)
		}
	})

	t.Run("report mode should flag without marking", func(t *testing.T) {
		repo := &stubRepo{items: []*model.ActivationRecord{record("CODE1", "SUB1", time.Hour)}}
		control := &stubControl{states: map[string]adapter.SubscriptionState{
			"SUB1": adapter.SubscriptionStateActive,
		}}
		w := newReconciler(repo, control, false)

		w.tick(context.Background())

		if len(repo.marked) != 0 {
			t.Errorf("report mode marked records: %v", repo.marked)
		}
		if len(control.calls) != 1 {
			t.Errorf("expected one status check, got %d", len(control.calls))
		}
	})

	t.Run("repair mode should mark only active subscriptions", func(t *testing.T) {
		repo := &stubRepo{items: []*model.ActivationRecord{
			record("CODE1", "SUB1", time.Hour),
			record("CODE2", "SUB2", time.Hour),
			record("CODE3", "SUB3", time.Hour),
		}}
		control := &stubControl{
			states: map[string]adapter.SubscriptionState{
				"SUB1": adapter.SubscriptionStateActive,
				"SUB2": adapter.SubscriptionStatePaused,
			},
			errs: map[string]error{"SUB3": errors.New("upstream down")},
		}
		w := newReconciler(repo, control, true)

		w.tick(context.Background())

		if len(repo.marked) != 1 || repo.marked[0] != "CODE1" {
			t.Errorf("expected only CODE1 repaired, got %v", repo.marked)
		}
	})

	t.Run("a list failure should abort the pass", func(t *testing.T) {
		repo := &stubRepo{listErr: errors.New("db down")}
		control := &stubControl{}
		w := newReconciler(repo, control, true)

		w.tick(context.Background())

		if len(control.calls) != 0 {
			t.Errorf("expected no status checks, got %d", len(control.calls))
		}
	})
}
