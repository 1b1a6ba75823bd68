//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memActivationRepo is a small in-memory record store used by unit tests.
// MarkUsed performs the unused->used transition atomically under the lock,
// mirroring the store-level compare-and-set of the real repository.
type memActivationRepo struct {
	mu    sync.Mutex
	store map[string]*model.ActivationRecord

	upsertErr   error // simulate persistence failures
	markUsedErr error // simulate mark-used failures after a resume

	lastMarkUsedTx repository.Tx // handle received by the last MarkUsed call
}

func newMemActivationRepo() *memActivationRepo {
	return &memActivationRepo{store: make(map[string]*model.ActivationRecord)}
}

func (m *memActivationRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.ActivationRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.UsedAt = nil
	m.store[rec.Code] = &cp
	return nil
}

func (m *memActivationRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memActivationRepo) MarkUsed(ctx context.Context, tx repository.Tx, code, subscriptionID string, usedAt time.Time) error {
	m.mu.Lock()
	m.lastMarkUsedTx = tx
	m.mu.Unlock()
	if m.markUsedErr != nil {
		return m.markUsedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[code]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.SubscriptionID != subscriptionID {
		return domain.ErrCodeMismatch
	}
	if rec.Status != model.ActivationStatusUnused {
		return domain.ErrCodeAlreadyUsed
	}
	rec.Status = model.ActivationStatusUsed
	ua := usedAt
	rec.UsedAt = &ua
	return nil
}

func (m *memActivationRepo) List(ctx context.Context, tx repository.Tx, f model.ActivationFilter) ([]*model.ActivationRecord, model.ActivationTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*model.ActivationRecord
	var totals model.ActivationTotals
	for _, rec := range m.store {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.IssuedFrom != nil && rec.IssuedAt.Before(*f.IssuedFrom) {
			continue
		}
		if f.IssuedTo != nil && rec.IssuedAt.After(*f.IssuedTo) {
			continue
		}
		totals.Total++
		if rec.Status == model.ActivationStatusUsed {
			totals.Used++
		}
		cp := *rec
		matched = append(matched, &cp)
	}
	totals.Unused = totals.Total - totals.Used

	sort.Slice(matched, func(i, j int) bool { return matched[i].IssuedAt.After(matched[j].IssuedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, totals, nil
}

// get returns the stored record without copying, for assertions.
func (m *memActivationRepo) get(code string) *model.ActivationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[code]
}

// memTx is the opaque handle the mock transaction manager hands out.
type memTx struct{}

// memTxManager counts transactions and runs the callback inline; the
// in-memory store is already atomic under its lock.
type memTxManager struct {
	mu    sync.Mutex
	calls int
}

func (m *memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx, memTx{})
}

func (m *memTxManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockControl records pause/resume calls and can simulate failures.
type mockControl struct {
	mu          sync.Mutex
	pauseCalls  int
	resumeCalls int
	pauseErr    error
	resumeErr   error
	statusFn    func(subscriptionID string) (adapter.SubscriptionState, error)
}

func (c *mockControl) Name() string { return "mock" }

func (c *mockControl) Pause(ctx context.Context, subscriptionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseCalls++
	return c.pauseErr
}

func (c *mockControl) Resume(ctx context.Context, subscriptionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeCalls++
	return c.resumeErr
}

func (c *mockControl) Status(ctx context.Context, subscriptionID string) (adapter.SubscriptionState, error) {
	c.mu.Lock()
	fn := c.statusFn
	c.mu.Unlock()
	if fn != nil {
		return fn(subscriptionID)
	}
	return adapter.SubscriptionStateUnknown, nil
}

func (c *mockControl) resumes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeCalls
}

func (c *mockControl) pauses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseCalls
}
