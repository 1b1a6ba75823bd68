package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
	"subscription-activation/internal/infra/logging"
	"subscription-activation/internal/infra/metrics"
)

type RedemptionUseCase interface {
	// Redeem validates (code, subscriptionID), resumes the subscription and
	// transitions the record to used. Validation order is fixed:
	// existence, then ownership, then freshness.
	//
	// When the resume succeeds but the store cannot mark the record used,
	// Redeem returns the record together with an error wrapping
	// domain.ErrMarkUsedFailed: the subscription is active, the code is
	// still technically redeemable, and the reconciler closes the gap.
	Redeem(ctx context.Context, code, subscriptionID string) (*model.ActivationRecord, error)
}

type redemptionUC struct {
	records repository.ActivationRecordRepository
	control adapter.SubscriptionControl
	txm     repository.TransactionManager
	log     *zerolog.Logger
}

func NewRedemptionUseCase(
	records repository.ActivationRecordRepository,
	control adapter.SubscriptionControl,
	txm repository.TransactionManager,
	logger *zerolog.Logger,
) RedemptionUseCase {
	return &redemptionUC{records: records, control: control, txm: txm, log: logger}
}

func (uc *redemptionUC) Redeem(ctx context.Context, code, subscriptionID string) (*model.ActivationRecord, error) {
	code = NormalizeCode(code)
	subscriptionID = strings.TrimSpace(subscriptionID)
	if code == "" || subscriptionID == "" {
		return nil, fmt.Errorf("%w: code and subscription id are required", domain.ErrInvalidArgument)
	}
	ctx = logging.WithCode(logging.WithSubscriptionID(ctx, subscriptionID), code)
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "RedemptionUC.Redeem")()

	rec, err := uc.records.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncRedeemed("not_found")
			log.Info().Msg("redemption rejected: unknown code")
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("lookup activation record: %w", err)
	}
	if rec.SubscriptionID != subscriptionID {
		metrics.IncRedeemed("mismatch")
		log.Info().Msg("redemption rejected: subscription mismatch")
		return nil, domain.ErrCodeMismatch
	}
	if !rec.Redeemable() {
		metrics.IncRedeemed("already_used")
		log.Info().Msg("redemption rejected: code already used")
		return nil, domain.ErrCodeAlreadyUsed
	}

	// A resume failure is fatal and the record stays unused: marking it
	// used without an actual reactivation would lock the customer out of
	// retrying with the same code.
	if err := uc.control.Resume(ctx, subscriptionID); err != nil {
		metrics.IncRedeemed("resume_failed")
		log.Error().Err(err).Msg("resume failed, record left unused")
		return nil, fmt.Errorf("resume subscription: %w", err)
	}

	// Single-winner guarantee: the store performs the unused->used
	// transition as one compare-and-set, so concurrent redemptions of the
	// same code race here, not at the read above. The transition and its
	// rejection-classification read run in one transaction so the
	// classification cannot observe a concurrent re-issuance in between.
	usedAt := time.Now().UTC()
	err = uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return uc.records.MarkUsed(ctx, tx, code, subscriptionID, usedAt)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeAlreadyUsed):
			metrics.IncRedeemed("already_used")
			log.Info().Msg("redemption lost the race: code already used")
			return nil, domain.ErrCodeAlreadyUsed
		case errors.Is(err, domain.ErrCodeMismatch):
			// The record was replaced by a concurrent re-issuance.
			metrics.IncRedeemed("mismatch")
			return nil, domain.ErrCodeMismatch
		default:
			// Resume already happened; the reconciler repairs this record.
			metrics.IncRedeemed("mark_used_failed")
			log.Error().Err(err).Msg("subscription resumed but record not marked used")
			return rec, fmt.Errorf("%w: %v", domain.ErrMarkUsedFailed, err)
		}
	}

	rec.Status = model.ActivationStatusUsed
	rec.UsedAt = &usedAt
	metrics.IncRedeemed("ok")
	log.Info().Msg("activation redeemed")
	return rec, nil
}
