package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
	"subscription-activation/internal/infra/logging"
	"subscription-activation/internal/infra/metrics"
)

// IssuanceResult is what the webhook caller gets back.
type IssuanceResult struct {
	Code           string
	SubscriptionID string
	OrderID        string
	CustomerEmail  string
	ActivateURL    string
	QRDataURL      string
}

type IssuanceUseCase interface {
	// Issue pauses the subscription, mints a single-use code and persists
	// the activation record. A pause failure is tolerated; a persistence
	// failure is fatal.
	Issue(ctx context.Context, ev model.SubscriptionEvent) (*IssuanceResult, error)
}

type issuanceUC struct {
	records    repository.ActivationRecordRepository
	control    adapter.SubscriptionControl
	baseURL    string
	codeLength int
	qrSize     int
	log        *zerolog.Logger
}

func NewIssuanceUseCase(
	records repository.ActivationRecordRepository,
	control adapter.SubscriptionControl,
	baseURL string,
	codeLength, qrSize int,
	logger *zerolog.Logger,
) IssuanceUseCase {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	if qrSize <= 0 {
		qrSize = 256
	}
	return &issuanceUC{
		records:    records,
		control:    control,
		baseURL:    strings.TrimRight(baseURL, "/"),
		codeLength: codeLength,
		qrSize:     qrSize,
		log:        logger,
	}
}

func (uc *issuanceUC) Issue(ctx context.Context, ev model.SubscriptionEvent) (*IssuanceResult, error) {
	if strings.TrimSpace(ev.SubscriptionID) == "" {
		metrics.IncIssued("invalid_payload")
		return nil, fmt.Errorf("%w: missing subscription id", domain.ErrInvalidPayload)
	}
	ctx = logging.WithSubscriptionID(ctx, ev.SubscriptionID)
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "IssuanceUC.Issue")()

	// Pause is best effort: an operator may need the code even when the
	// subscription could not be paused, so the workflow continues.
	if err := uc.control.Pause(ctx, ev.SubscriptionID); err != nil {
		metrics.IncPauseFailureTolerated()
		log.Warn().Err(err).Msg("pause failed, issuing code anyway")
	}

	code, err := GenerateCode(uc.codeLength)
	if err != nil {
		metrics.IncIssued("generate_failed")
		return nil, fmt.Errorf("generate activation code: %w", err)
	}
	activateURL := uc.activateURL(code, ev.SubscriptionID)

	// QR failure is non-fatal: the bare URL still works.
	qrDataURL := ""
	if png, err := qrcode.Encode(activateURL, qrcode.Medium, uc.qrSize); err != nil {
		log.Warn().Err(err).Msg("QR generation failed, continuing with bare URL")
	} else {
		qrDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	rec := &model.ActivationRecord{
		Code:           code,
		SubscriptionID: ev.SubscriptionID,
		Status:         model.ActivationStatusUnused,
		IssuedAt:       time.Now().UTC(),
		CustomerEmail:  ev.CustomerEmail,
		OrderID:        ev.OrderID,
		ActivateURL:    activateURL,
		QRDataURL:      qrDataURL,
	}
	// A code that is not durably stored is unredeemable and must not reach
	// the customer, so a persistence failure aborts the workflow.
	if err := uc.records.Upsert(ctx, nil, rec); err != nil {
		metrics.IncIssued("persist_failed")
		return nil, fmt.Errorf("persist activation record: %w", err)
	}

	metrics.IncIssued("ok")
	log.Info().Str("code", code).Str("activate_url", activateURL).Msg("activation issued")

	return &IssuanceResult{
		Code:           code,
		SubscriptionID: ev.SubscriptionID,
		OrderID:        ev.OrderID,
		CustomerEmail:  ev.CustomerEmail,
		ActivateURL:    activateURL,
		QRDataURL:      qrDataURL,
	}, nil
}

func (uc *issuanceUC) activateURL(code, subscriptionID string) string {
	return fmt.Sprintf("%s/activate?code=%s&subId=%s",
		uc.baseURL, url.QueryEscape(code), url.QueryEscape(subscriptionID))
}
