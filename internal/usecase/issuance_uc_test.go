//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/usecase"
)

func newIssuanceUC(repo *memActivationRepo, control *mockControl) usecase.IssuanceUseCase {
	return usecase.NewIssuanceUseCase(repo, control, "https://activate.example.com", 12, 128, newTestLogger())
}

func TestIssuanceUseCase_Issue(t *testing.T) {
	ctx := context.Background()
	ev := model.SubscriptionEvent{
		SubscriptionID: "SUB123",
		OrderID:        "ORD-1",
		CustomerEmail:  "jo@example.com",
	}

	t.Run("should pause, persist an unused record and return code and URL", func(t *testing.T) {
		repo := newMemActivationRepo()
		control := &mockControl{}
		uc := newIssuanceUC(repo, control)

		res, err := uc.Issue(ctx, ev)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if control.pauses() != 1 {
			t.Errorf("expected exactly one pause call, got %d", control.pauses())
		}
		if len(res.Code) != 12 {
			t.Errorf("expected a 12-character code, got %q", res.Code)
		}
		if !strings.Contains(res.ActivateURL, "/activate?code="+res.Code) ||
			!strings.Contains(res.ActivateURL, "subId=SUB123") {
			t.Errorf("unexpected activation URL: %q", res.ActivateURL)
		}
		if !strings.HasPrefix(res.QRDataURL, "data:image/png;base64,") {
			t.Error("expected a PNG data URL")
		}

		rec := repo.get(res.Code)
		if rec == nil {
			t.Fatal("expected the record to be persisted")
		}
		if rec.Status != model.ActivationStatusUnused {
			t.Errorf("expected status unused, got %q", rec.Status)
		}
		if rec.SubscriptionID != "SUB123" || rec.OrderID != "ORD-1" || rec.CustomerEmail != "jo@example.com" {
			t.Errorf("record fields not carried over: %+v", rec)
		}
		if rec.UsedAt != nil {
			t.Error("expected usedAt to be nil on issuance")
		}
		if rec.IssuedAt.IsZero() {
			t.Error("expected issuedAt to be set")
		}
	})

	t.Run("should issue a code even when the pause call fails", func(t *testing.T) {
		repo := newMemActivationRepo()
		control := &mockControl{pauseErr: domain.ErrUpstreamUnavailable}
		uc := newIssuanceUC(repo, control)

		res, err := uc.Issue(ctx, ev)
		if err != nil {
			t.Fatalf("expected pause failure to be tolerated, but got: %v", err)
		}
		if repo.get(res.Code) == nil {
			t.Error("expected the record to be persisted despite the failed pause")
		}
	})

	t.Run("should reject an event without a subscription id", func(t *testing.T) {
		repo := newMemActivationRepo()
		control := &mockControl{}
		uc := newIssuanceUC(repo, control)

		_, err := uc.Issue(ctx, model.SubscriptionEvent{OrderID: "ORD-1"})
		if !errors.Is(err, domain.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, but got: %v", err)
		}
		if control.pauses() != 0 {
			t.Errorf("expected no pause call, got %d", control.pauses())
		}
	})

	t.Run("should fail when the record cannot be persisted", func(t *testing.T) {
		repo := newMemActivationRepo()
		repo.upsertErr = errors.New("store down")
		control := &mockControl{}
		uc := newIssuanceUC(repo, control)

		_, err := uc.Issue(ctx, ev)
		if err == nil {
			t.Fatal("expected an error, but got nil")
		}
	})

	t.Run("re-issuance replaces the record and resets it to unused", func(t *testing.T) {
		repo := newMemActivationRepo()
		control := &mockControl{}
		uc := newIssuanceUC(repo, control)
		redeem := usecase.NewRedemptionUseCase(repo, control, &memTxManager{}, newTestLogger())

		res, err := uc.Issue(ctx, ev)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if _, err := redeem.Redeem(ctx, res.Code, "SUB123"); err != nil {
			t.Fatalf("expected redemption to succeed, but got: %v", err)
		}

		// Simulate the same code being re-issued for a new subscription.
		if err := repo.Upsert(ctx, nil, &model.ActivationRecord{
			Code:           res.Code,
			SubscriptionID: "SUB999",
			Status:         model.ActivationStatusUnused,
			IssuedAt:       repo.get(res.Code).IssuedAt,
		}); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		rec := repo.get(res.Code)
		if rec.Status != model.ActivationStatusUnused || rec.UsedAt != nil {
			t.Errorf("expected re-issuance to reset the lifecycle, got %+v", rec)
		}
		if rec.SubscriptionID != "SUB999" {
			t.Errorf("expected the record to be bound to the new subscription, got %q", rec.SubscriptionID)
		}
	})
}
