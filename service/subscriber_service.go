package service

import (
	"context"
	"fmt"
	"time"

	"doorman/models"
)

// subscriberService never talks to the messaging transport; group-side
// effects of lifecycle changes belong to AccessService.
type subscriberService struct {
	uowFactory UnitOfWorkFactory
}

// NewSubscriberService creates a new subscriber service
func NewSubscriberService(uowFactory UnitOfWorkFactory) SubscriberService {
	return &subscriberService{uowFactory: uowFactory}
}

// Upsert registers a user on first contact or refreshes their handle,
// display name and last-active timestamp. Subscription fields are preserved.
func (s *subscriberService) Upsert(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().Upsert(ctx, telegramID, username, fullName)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %d: %w", telegramID, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return user, nil
}

// Activate grants a fresh entitlement window for a plan, starting now.
func (s *subscriberService) Activate(ctx context.Context, telegramID int64, planKey string) (time.Time, error) {
	end := AddDays(Today(), PlanDays(planKey))
	if err := s.setSubscription(ctx, telegramID, true, &end); err != nil {
		return time.Time{}, err
	}
	return end, nil
}

// Extend adds days to the current subscription. When the stored end date is
// still in the future the extension stacks on top of it; when the user has
// no end date, or the date already passed, the extension is based on today
// so the user always receives the full number of days.
func (s *subscriberService) Extend(ctx context.Context, telegramID int64, days int) (time.Time, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}
	if user == nil {
		return time.Time{}, ErrUserNotFound
	}

	base := Today()
	if user.SubscriptionEnd != nil && user.SubscriptionEnd.After(base) {
		base = DateOf(*user.SubscriptionEnd)
	}
	end := AddDays(base, days)

	if err := uow.UserRepository().SetSubscription(ctx, telegramID, true, &end); err != nil {
		return time.Time{}, fmt.Errorf("failed to extend subscription for %d: %w", telegramID, err)
	}

	if err := uow.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("failed to commit: %w", err)
	}
	return end, nil
}

// Renew restarts the subscription from today for the given number of days.
// Unlike Extend this deliberately replaces the current term, even when that
// shortens a longer active one: it is the admin's "start over" tool.
func (s *subscriberService) Renew(ctx context.Context, telegramID int64, days int) (time.Time, error) {
	end := AddDays(Today(), days)
	if err := s.setSubscription(ctx, telegramID, true, &end); err != nil {
		return time.Time{}, err
	}
	return end, nil
}

// Suspend clears the subscription immediately. Group removal is handled by
// AccessService, which calls this first.
func (s *subscriberService) Suspend(ctx context.Context, telegramID int64) error {
	return s.setSubscription(ctx, telegramID, false, nil)
}

// Get returns a user, or nil when unknown.
func (s *subscriberService) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().GetByTelegramID(ctx, telegramID)
}

// ExpiringWithin lists active users whose subscription ends inside the
// look-ahead window, soonest first.
func (s *subscriberService) ExpiringWithin(ctx context.Context, days int) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().ExpiringWithin(ctx, days)
}

// AllActive lists every user with an active subscription.
func (s *subscriberService) AllActive(ctx context.Context) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().AllActive(ctx)
}

// Recent lists the most recently registered users for the admin panel.
func (s *subscriberService) Recent(ctx context.Context, limit int) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().Recent(ctx, limit)
}

// Stats returns the aggregate user snapshot for the admin panel.
func (s *subscriberService) Stats(ctx context.Context) (*models.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().CountStats(ctx)
}

func (s *subscriberService) setSubscription(ctx context.Context, telegramID int64, active bool, end *time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.UserRepository().SetSubscription(ctx, telegramID, active, end); err != nil {
		return fmt.Errorf("failed to set subscription for %d: %w", telegramID, err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
