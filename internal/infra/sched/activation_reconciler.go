package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
	"subscription-activation/internal/infra/metrics"
)

// ActivationReconciler closes the known gap between a successful resume and
// a failed mark-used: it periodically scans recent unused records and
// cross-checks the subscription state with Subscription Control. A record
// whose subscription is already active is either flagged (report mode) or
// marked used (repair mode).
//
// Repair cannot distinguish this gap from an issuance whose pause call
// failed, so it is opt-in and only touches records older than minAge.
type ActivationReconciler struct {
	records  repository.ActivationRecordRepository
	control  adapter.SubscriptionControl
	interval time.Duration
	lookback time.Duration
	minAge   time.Duration
	repair   bool
	log      *zerolog.Logger
}

func NewActivationReconciler(
	records repository.ActivationRecordRepository,
	control adapter.SubscriptionControl,
	interval, lookback, minAge time.Duration,
	repair bool,
	logger *zerolog.Logger,
) *ActivationReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	return &ActivationReconciler{
		records:  records,
		control:  control,
		interval: interval,
		lookback: lookback,
		minAge:   minAge,
		repair:   repair,
		log:      logger,
	}
}

func (w *ActivationReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *ActivationReconciler) tick(ctx context.Context) {
	now := time.Now().UTC()
	from := now.Add(-w.lookback)
	to := now.Add(-w.minAge)
	if !to.After(from) {
		return
	}

	items, _, err := w.records.List(ctx, nil, model.ActivationFilter{
		Status:     model.ActivationStatusUnused,
		IssuedFrom: &from,
		IssuedTo:   &to,
		Limit:      200,
	})
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list unused records failed")
		return
	}

	for _, rec := range items {
		state, err := w.control.Status(ctx, rec.SubscriptionID)
		if err != nil {
			w.log.Warn().Err(err).Str("code", rec.Code).Msg("reconciler: status check failed")
			continue
		}
		if state != adapter.SubscriptionStateActive {
			continue
		}

		if !w.repair {
			metrics.IncReconciler("flagged")
			w.log.Warn().Str("code", rec.Code).Str("subscription_id", rec.SubscriptionID).
				Msg("reconciler: unused code for an active subscription")
			continue
		}

		if err := w.records.MarkUsed(ctx, nil, rec.Code, rec.SubscriptionID, now); err != nil {
			// A concurrent redemption winning the race here is fine.
			w.log.Warn().Err(err).Str("code", rec.Code).Msg("reconciler: repair failed")
			continue
		}
		metrics.IncReconciler("repaired")
		w.log.Info().Str("code", rec.Code).Str("subscription_id", rec.SubscriptionID).
			Msg("reconciler: marked record used")
	}
}
