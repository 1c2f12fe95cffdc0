package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"doorman/events"
	"doorman/models"
)

// AccessGranter issues group access after an entitlement change.
type AccessGranter interface {
	GrantAccess(ctx context.Context, telegramID int64) error
}

// RoleResolver resolves a user's role for authorization checks.
type RoleResolver interface {
	RoleOf(ctx context.Context, telegramID int64) (models.Role, error)
}

// paymentService runs the manual review flow. Users submit a claim after
// paying off-platform, and an approval activates the subscription and hands
// out group access.
type paymentService struct {
	uowFactory UnitOfWorkFactory
	messenger  Messenger
	roles      RoleResolver
	access     AccessGranter
}

// NewPaymentService creates a new payment service
func NewPaymentService(uowFactory UnitOfWorkFactory, messenger Messenger, roles RoleResolver, access AccessGranter) PaymentService {
	return &paymentService{
		uowFactory: uowFactory,
		messenger:  messenger,
		roles:      roles,
		access:     access,
	}
}

// Submit records a pending claim and fans the review request out to every
// admin. A user may submit again while a claim is pending; each submission
// is its own row and reviewers see the latest.
func (s *paymentService) Submit(ctx context.Context, telegramID int64, username, fullName, planKey string) (*models.PaymentClaim, error) {
	plan := PlanByKey(planKey)
	if plan == nil {
		return nil, fmt.Errorf("unknown plan %q", planKey)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.UserRepository().Upsert(ctx, telegramID, username, fullName); err != nil {
		return nil, fmt.Errorf("failed to upsert user %d: %w", telegramID, err)
	}

	claim := &models.PaymentClaim{
		TelegramID: telegramID,
		Username:   username,
		FullName:   fullName,
		PlanName:   plan.Name,
		Amount:     plan.Price,
		Status:     models.ClaimPending,
	}
	if err := uow.ClaimRepository().Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	admins, err := uow.AdminRepository().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	text := fmt.Sprintf("New payment claim #%d\nFrom: %s (@%s)\nPlan: %s (%s)\n\nUse /payments to review.",
		claim.ID, fullName, username, plan.Name, plan.Price)
	notified := 0
	for _, admin := range admins {
		if _, result := Notify(ctx, s.messenger, admin.TelegramID, text); result == Delivered {
			notified++
		}
	}
	log.WithFields(log.Fields{
		"claimID":  claim.ID,
		"notified": notified,
		"admins":   len(admins),
	}).Info("Payment claim submitted")

	return claim, nil
}

// Approve resolves the user's latest pending claim, activates the
// subscription for the claimed plan's duration and issues group access.
// Approving twice is a no-op: the second call finds no pending claim.
func (s *paymentService) Approve(ctx context.Context, reviewerID, telegramID int64) (*models.PaymentClaim, error) {
	if err := s.authorizeReviewer(ctx, reviewerID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claim, err := uow.ClaimRepository().LatestPending(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending claim for %d: %w", telegramID, err)
	}
	if claim == nil {
		return nil, ErrNoPendingClaim
	}

	resolved, err := uow.ClaimRepository().Resolve(ctx, claim.ID, models.ClaimApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to approve claim %d: %w", claim.ID, err)
	}
	if !resolved {
		return nil, ErrNoPendingClaim
	}
	claim.Status = models.ClaimApproved

	end := AddDays(Today(), PlanDays(claim.PlanName))
	if err := uow.UserRepository().SetSubscription(ctx, telegramID, true, &end); err != nil {
		return nil, fmt.Errorf("failed to activate subscription for %d: %w", telegramID, err)
	}

	uow.EventBus().Publish(events.ClaimApprovedEvent{
		ClaimID:         claim.ID,
		TelegramID:      telegramID,
		PlanName:        claim.PlanName,
		SubscriptionEnd: end,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	if err := s.access.GrantAccess(ctx, telegramID); err != nil {
		if errors.Is(err, ErrNoLinkedGroup) {
			log.WithField("telegramID", telegramID).Warn("Claim approved but no group is linked; skipping invite")
		} else {
			log.WithError(err).WithField("telegramID", telegramID).Error("Claim approved but access grant failed")
		}
		Notify(ctx, s.messenger, telegramID,
			fmt.Sprintf("Your payment was approved! Subscription active until %s.", end.Format("2006-01-02")))
	}

	return claim, nil
}

// Reject resolves the user's latest pending claim without touching the
// subscription, and tells the user.
func (s *paymentService) Reject(ctx context.Context, reviewerID, telegramID int64) (*models.PaymentClaim, error) {
	if err := s.authorizeReviewer(ctx, reviewerID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claim, err := uow.ClaimRepository().LatestPending(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending claim for %d: %w", telegramID, err)
	}
	if claim == nil {
		return nil, ErrNoPendingClaim
	}

	resolved, err := uow.ClaimRepository().Resolve(ctx, claim.ID, models.ClaimRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to reject claim %d: %w", claim.ID, err)
	}
	if !resolved {
		return nil, ErrNoPendingClaim
	}
	claim.Status = models.ClaimRejected

	uow.EventBus().Publish(events.ClaimRejectedEvent{
		ClaimID:    claim.ID,
		TelegramID: telegramID,
		PlanName:   claim.PlanName,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	Notify(ctx, s.messenger, telegramID,
		"Your payment claim was declined. If you believe this is a mistake, contact an admin.")
	return claim, nil
}

// Pending lists all unresolved claims, oldest first.
func (s *paymentService) Pending(ctx context.Context) ([]*models.PaymentClaim, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.ClaimRepository().Pending(ctx)
}

// History lists recent claims across all users.
func (s *paymentService) History(ctx context.Context, limit int) ([]*models.PaymentClaim, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.ClaimRepository().History(ctx, limit)
}

// UserHistory lists one user's claims, newest first.
func (s *paymentService) UserHistory(ctx context.Context, telegramID int64) ([]*models.PaymentClaim, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.ClaimRepository().UserHistory(ctx, telegramID)
}

// CleanupResolved deletes resolved claims older than the cutoff and returns
// how many were removed. Pending claims are never touched.
func (s *paymentService) CleanupResolved(ctx context.Context, olderThan time.Time) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.ClaimRepository().DeleteResolvedBefore(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up resolved claims: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return deleted, nil
}

func (s *paymentService) authorizeReviewer(ctx context.Context, reviewerID int64) error {
	role, err := s.roles.RoleOf(ctx, reviewerID)
	if err != nil {
		return fmt.Errorf("failed to resolve reviewer role: %w", err)
	}
	if !role.CanReviewClaims() {
		return ErrUnauthorized
	}
	return nil
}
