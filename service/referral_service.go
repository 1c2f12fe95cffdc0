package service

import (
	"context"
	"fmt"

	"doorman/models"
)

// referralService derives credits from live subscription state, never
// storing them.
type referralService struct {
	uowFactory UnitOfWorkFactory
}

// NewReferralService creates a new referral service
func NewReferralService(uowFactory UnitOfWorkFactory) ReferralService {
	return &referralService{uowFactory: uowFactory}
}

// Record registers a referral edge once. Self-referrals and duplicate pairs
// are reported as not-created, they are not errors.
func (s *referralService) Record(ctx context.Context, referrerID, referredID int64) (bool, error) {
	if referrerID == referredID {
		return false, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	created, err := uow.ReferralRepository().Create(ctx, referrerID, referredID)
	if err != nil {
		return false, fmt.Errorf("failed to record referral %d→%d: %w", referrerID, referredID, err)
	}
	if !created {
		return false, nil
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Stats derives referral counts and earned free days for a user.
func (s *referralService) Stats(ctx context.Context, telegramID int64) (*models.ReferralStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats, err := uow.ReferralRepository().Stats(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats for %d: %w", telegramID, err)
	}
	return stats, nil
}
