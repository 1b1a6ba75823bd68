package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/repository"
)

const (
	listDefaultLimit = 20
	listMaxLimit     = 2000
)

type ListingUseCase interface {
	// List returns a page of records plus totals over the filtered set.
	List(ctx context.Context, f model.ActivationFilter) ([]*model.ActivationRecord, model.ActivationTotals, error)
	// GetByCode returns one record regardless of status.
	GetByCode(ctx context.Context, code string) (*model.ActivationRecord, error)
}

type listingUC struct {
	records repository.ActivationRecordRepository
	log     *zerolog.Logger
}

func NewListingUseCase(records repository.ActivationRecordRepository, logger *zerolog.Logger) ListingUseCase {
	return &listingUC{records: records, log: logger}
}

func (uc *listingUC) List(ctx context.Context, f model.ActivationFilter) ([]*model.ActivationRecord, model.ActivationTotals, error) {
	if f.Limit <= 0 {
		f.Limit = listDefaultLimit
	}
	if f.Limit > listMaxLimit {
		f.Limit = listMaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	items, totals, err := uc.records.List(ctx, nil, f)
	if err != nil {
		return nil, model.ActivationTotals{}, fmt.Errorf("list activation records: %w", err)
	}
	return items, totals, nil
}

func (uc *listingUC) GetByCode(ctx context.Context, code string) (*model.ActivationRecord, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", domain.ErrInvalidArgument)
	}
	rec, err := uc.records.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find activation record: %w", err)
	}
	return rec, nil
}
