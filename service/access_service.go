package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"doorman/events"
	"doorman/models"
)

// ReconcileReport summarizes one expiry-reconciliation sweep.
type ReconcileReport struct {
	Expired   int
	Removed   int
	Notified  int
	Failed    int
	StartedAt time.Time
}

// accessService tracks single-use invites in a bounded registry so delivery
// messages can be torn down once the invite is consumed.
type accessService struct {
	uowFactory UnitOfWorkFactory
	messenger  Messenger
	registry   *InviteRegistry
}

// NewAccessService creates a new access service
func NewAccessService(uowFactory UnitOfWorkFactory, messenger Messenger, registry *InviteRegistry) AccessService {
	return &accessService{
		uowFactory: uowFactory,
		messenger:  messenger,
		registry:   registry,
	}
}

// GrantAccess mints a one-time invite to the linked group and delivers it to
// the user. Without a linked group the grant degrades to a no-op with
// ErrNoLinkedGroup so the caller can still finish the entitlement change.
func (s *accessService) GrantAccess(ctx context.Context, telegramID int64) error {
	groupID, _, err := s.linkedGroup(ctx)
	if err != nil {
		return err
	}

	link, err := s.messenger.CreateOneTimeInvite(ctx, groupID, InviteTTL)
	if err != nil {
		return fmt.Errorf("failed to create invite for %d: %w", telegramID, err)
	}

	text := fmt.Sprintf("Your subscription is active. Join the group with this link (valid for 24 hours, single use):\n%s", link)
	messageID, result := Notify(ctx, s.messenger, telegramID, text)
	if result != Delivered {
		return fmt.Errorf("failed to deliver invite to %d: %s", telegramID, result)
	}

	s.registry.Put(telegramID, link, messageID)

	log.WithFields(log.Fields{
		"telegramID": telegramID,
		"groupID":    groupID,
	}).Info("Issued one-time group invite")
	return nil
}

// HandleJoin runs when a user enters the linked group. If we issued the
// invite, it is revoked and the delivery message deleted so neither can be
// reused, then a welcome is sent. Joins we did not broker are ignored.
func (s *accessService) HandleJoin(ctx context.Context, groupID, telegramID int64) error {
	artifact, ok := s.registry.Take(telegramID)
	if !ok {
		return nil
	}

	if err := s.messenger.RevokeInvite(ctx, groupID, artifact.InviteLink); err != nil {
		log.WithError(err).WithField("telegramID", telegramID).Warn("Failed to revoke consumed invite")
	}
	if artifact.MessageID != 0 {
		if err := s.messenger.DeleteMessage(ctx, telegramID, artifact.MessageID); err != nil {
			log.WithError(err).WithField("telegramID", telegramID).Warn("Failed to delete invite delivery message")
		}
	}

	if _, err := s.messenger.SendMessage(ctx, telegramID, "Welcome aboard! You now have full access to the group."); err != nil {
		log.WithError(err).WithField("telegramID", telegramID).Warn("Failed to send welcome message")
	}
	return nil
}

// HandleJoinRequest approves join requests from active subscribers and
// declines everyone else, pointing them at the bot. Returns whether the
// request was approved.
func (s *accessService) HandleJoinRequest(ctx context.Context, groupID, telegramID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}

	if user != nil && user.HasSubscription {
		if err := s.messenger.ApproveJoinRequest(ctx, groupID, telegramID); err != nil {
			return false, fmt.Errorf("failed to approve join request for %d: %w", telegramID, err)
		}
		return true, nil
	}

	if err := s.messenger.DeclineJoinRequest(ctx, groupID, telegramID); err != nil {
		return false, fmt.Errorf("failed to decline join request for %d: %w", telegramID, err)
	}
	Notify(ctx, s.messenger, telegramID, "Your join request was declined. Start a subscription with the bot to get access.")
	return false, nil
}

// RemoveFromGroup ejects a user without a permanent ban: ban then immediate
// unban, so they can rejoin later through a fresh invite.
func (s *accessService) RemoveFromGroup(ctx context.Context, telegramID int64) error {
	groupID, _, err := s.linkedGroup(ctx)
	if err != nil {
		return err
	}
	return s.removeFromGroup(ctx, groupID, telegramID)
}

func (s *accessService) removeFromGroup(ctx context.Context, groupID, telegramID int64) error {
	member, err := s.messenger.IsMember(ctx, groupID, telegramID)
	if err != nil {
		return fmt.Errorf("failed to check membership of %d: %w", telegramID, err)
	}
	if !member {
		return nil
	}

	if err := s.messenger.BanMember(ctx, groupID, telegramID); err != nil {
		return fmt.Errorf("failed to remove %d from group: %w", telegramID, err)
	}
	if err := s.messenger.UnbanMember(ctx, groupID, telegramID); err != nil {
		return fmt.Errorf("failed to lift removal ban for %d: %w", telegramID, err)
	}
	return nil
}

// Suspend ends a subscription immediately and removes the user from the
// group. The entitlement flip is committed before any transport work.
func (s *accessService) Suspend(ctx context.Context, telegramID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := uow.UserRepository().SetSubscription(ctx, telegramID, false, nil); err != nil {
		return fmt.Errorf("failed to suspend %d: %w", telegramID, err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if err := s.RemoveFromGroup(ctx, telegramID); err != nil && !errors.Is(err, ErrNoLinkedGroup) {
		return err
	}
	return nil
}

// ReconcileExpired flips every overdue subscription inactive, then removes
// and notifies each affected user. The flip is committed first: a transport
// failure never resurrects an expired subscription. Per-user failures are
// isolated so one bad removal does not stall the sweep.
func (s *accessService) ReconcileExpired(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: time.Now()}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expired, err := uow.UserRepository().ExpireOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue subscriptions: %w", err)
	}
	for _, user := range expired {
		uow.EventBus().Publish(events.SubscriptionExpiredEvent{
			TelegramID: user.TelegramID,
			FullName:   user.FullName,
		})
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expiry sweep: %w", err)
	}
	report.Expired = len(expired)

	if len(expired) == 0 {
		return report, nil
	}

	groupID, _, err := s.linkedGroup(ctx)
	haveGroup := err == nil
	if err != nil && !errors.Is(err, ErrNoLinkedGroup) {
		return report, err
	}

	for _, user := range expired {
		if haveGroup {
			if err := s.removeFromGroup(ctx, groupID, user.TelegramID); err != nil {
				log.WithError(err).WithField("telegramID", user.TelegramID).Error("Failed to remove expired subscriber")
				report.Failed++
			} else {
				report.Removed++
			}
		}

		// The expiry is already committed, so the user is told even when
		// the group removal failed.
		text := "Your subscription has expired and your group access has ended. Renew any time with /start."
		if _, result := Notify(ctx, s.messenger, user.TelegramID, text); result == Delivered {
			report.Notified++
		}
	}

	log.WithFields(log.Fields{
		"expired":  report.Expired,
		"removed":  report.Removed,
		"notified": report.Notified,
		"failed":   report.Failed,
	}).Info("Expiry reconciliation complete")
	return report, nil
}

// MemberCount reports the linked group's current size.
func (s *accessService) MemberCount(ctx context.Context) (int, error) {
	groupID, _, err := s.linkedGroup(ctx)
	if err != nil {
		return 0, err
	}
	count, err := s.messenger.MemberCount(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}
	return count, nil
}

func (s *accessService) linkedGroup(ctx context.Context) (int64, string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raw, err := uow.SettingRepository().Get(ctx, models.SettingLinkedGroupID)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read linked group id: %w", err)
	}
	if raw == "" {
		return 0, "", ErrNoLinkedGroup
	}
	groupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid linked group id %q: %w", raw, err)
	}
	title, err := uow.SettingRepository().Get(ctx, models.SettingLinkedGroupTitle)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read linked group title: %w", err)
	}
	return groupID, title, nil
}
