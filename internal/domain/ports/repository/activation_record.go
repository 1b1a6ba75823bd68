package repository

import (
	"context"
	"time"

	"subscription-activation/internal/domain/model"
)

// ActivationRecordRepository is the port for the durable record store.
// It is the single serialization point for the one-time-use guarantee:
// MarkUsed must be a store-level compare-and-set, never read-then-write.
type ActivationRecordRepository interface {
	// Upsert creates the record or, on a code conflict, overwrites every
	// field and resets the record to unused. Re-issuance is deliberate
	// replacement, not an error.
	Upsert(ctx context.Context, tx Tx, rec *model.ActivationRecord) error

	// FindByCode returns the record for a code (any status) or
	// domain.ErrNotFound.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationRecord, error)

	// MarkUsed atomically transitions unused->used for the record matching
	// both code and subscription id, setting used_at. When no row
	// transitions it returns domain.ErrNotFound, domain.ErrCodeMismatch or
	// domain.ErrCodeAlreadyUsed, in that classification order.
	MarkUsed(ctx context.Context, tx Tx, code, subscriptionID string, usedAt time.Time) error

	// List returns a page of records ordered by issued_at descending plus
	// aggregate totals over the whole filtered set.
	List(ctx context.Context, tx Tx, f model.ActivationFilter) ([]*model.ActivationRecord, model.ActivationTotals, error)
}
