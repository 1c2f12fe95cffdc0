package service

import (
	"context"
	"fmt"
	"strconv"

	"doorman/events"
	"doorman/models"
)

// PaymentInfo is the off-platform payment destination shown to subscribers.
type PaymentInfo struct {
	CCPNumber       string
	BaridimobNumber string
	BaridiMoneyNum  string
	BeneficiaryName string
}

type adminService struct {
	uowFactory UnitOfWorkFactory
}

// NewAdminService creates a new admin service
func NewAdminService(uowFactory UnitOfWorkFactory) AdminService {
	return &adminService{uowFactory: uowFactory}
}

// RoleOf resolves a user's role from the roster, the main-admin setting and
// subscription state.
func (s *adminService) RoleOf(ctx context.Context, telegramID int64) (models.Role, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return models.RoleGuest, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return s.roleOf(ctx, uow, telegramID)
}

func (s *adminService) roleOf(ctx context.Context, uow UnitOfWork, telegramID int64) (models.Role, error) {
	mainAdmin, err := uow.SettingRepository().Get(ctx, models.SettingMainAdminID)
	if err != nil {
		return models.RoleGuest, fmt.Errorf("failed to read main admin setting: %w", err)
	}
	if mainAdmin == strconv.FormatInt(telegramID, 10) {
		return models.RoleMainAdmin, nil
	}

	isAdmin, err := uow.AdminRepository().IsAdmin(ctx, telegramID)
	if err != nil {
		return models.RoleGuest, fmt.Errorf("failed to check admin roster: %w", err)
	}
	if isAdmin {
		return models.RoleAdmin, nil
	}

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return models.RoleGuest, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil && user.HasSubscription {
		return models.RoleSubscriber, nil
	}
	return models.RoleGuest, nil
}

// Promote adds a user to the admin roster. Main-admin only. Returns false
// when the target already holds the capability.
func (s *adminService) Promote(ctx context.Context, actorID, targetID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actorRole, err := s.roleOf(ctx, uow, actorID)
	if err != nil {
		return false, err
	}
	if !actorRole.CanManageAdmins() {
		return false, ErrUnauthorized
	}

	already, err := uow.AdminRepository().IsAdmin(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin roster: %w", err)
	}
	if already {
		return false, nil
	}

	user, err := uow.UserRepository().GetByTelegramID(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to get user %d: %w", targetID, err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	if err := uow.AdminRepository().Add(ctx, targetID, user.FullName); err != nil {
		return false, fmt.Errorf("failed to promote %d: %w", targetID, err)
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Demote removes a user from the admin roster. Main-admin only; the main
// admin itself can never be demoted. Returns false when the target was not
// an admin.
func (s *adminService) Demote(ctx context.Context, actorID, targetID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actorRole, err := s.roleOf(ctx, uow, actorID)
	if err != nil {
		return false, err
	}
	if !actorRole.CanManageAdmins() {
		return false, ErrUnauthorized
	}

	targetRole, err := s.roleOf(ctx, uow, targetID)
	if err != nil {
		return false, err
	}
	if targetRole == models.RoleMainAdmin {
		return false, ErrUnauthorized
	}
	if targetRole != models.RoleAdmin {
		return false, nil
	}

	if err := uow.AdminRepository().Remove(ctx, targetID); err != nil {
		return false, fmt.Errorf("failed to demote %d: %w", targetID, err)
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// SetMainAdmin designates the main admin. Settable once by anyone during
// bootstrap; afterwards only the current main admin may reassign it.
func (s *adminService) SetMainAdmin(ctx context.Context, actorID, targetID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	current, err := uow.SettingRepository().Get(ctx, models.SettingMainAdminID)
	if err != nil {
		return fmt.Errorf("failed to read main admin setting: %w", err)
	}
	if current != "" && current != strconv.FormatInt(actorID, 10) {
		return ErrUnauthorized
	}

	if err := uow.SettingRepository().Set(ctx, models.SettingMainAdminID, strconv.FormatInt(targetID, 10)); err != nil {
		return fmt.Errorf("failed to set main admin: %w", err)
	}

	// The main admin always carries plain admin capability as well. The
	// roster row references users, so the target must exist there first
	// even if they never talked to the bot.
	user, err := uow.UserRepository().GetByTelegramID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", targetID, err)
	}
	fullName := "Main Admin"
	if user == nil {
		if user, err = uow.UserRepository().Upsert(ctx, targetID, "", fullName); err != nil {
			return fmt.Errorf("failed to create user row for %d: %w", targetID, err)
		}
	}
	if user.FullName != "" {
		fullName = user.FullName
	}
	if err := uow.AdminRepository().Add(ctx, targetID, fullName); err != nil {
		return fmt.Errorf("failed to add main admin to roster: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// QuizStats returns the aggregate quiz snapshot for the admin panel and the
// weekly broadcast.
func (s *adminService) QuizStats(ctx context.Context) (*models.QuizStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats, err := uow.QuizResultRepository().Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}

// Admins lists the roster.
func (s *adminService) Admins(ctx context.Context) ([]*models.Admin, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.AdminRepository().All(ctx)
}

// EraseUser hard-deletes a user and every dependent row. Main-admin only;
// the main admin itself can never be erased.
func (s *adminService) EraseUser(ctx context.Context, actorID, targetID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actorRole, err := s.roleOf(ctx, uow, actorID)
	if err != nil {
		return err
	}
	if !actorRole.CanEraseUsers() {
		return ErrUnauthorized
	}

	targetRole, err := s.roleOf(ctx, uow, targetID)
	if err != nil {
		return err
	}
	if targetRole == models.RoleMainAdmin {
		return ErrUnauthorized
	}

	if err := uow.QuizResultRepository().DeleteByUser(ctx, targetID); err != nil {
		return fmt.Errorf("failed to delete quiz results for %d: %w", targetID, err)
	}
	if err := uow.ReferralRepository().DeleteByUser(ctx, targetID); err != nil {
		return fmt.Errorf("failed to delete referrals for %d: %w", targetID, err)
	}
	if err := uow.ClaimRepository().DeleteByUser(ctx, targetID); err != nil {
		return fmt.Errorf("failed to delete claims for %d: %w", targetID, err)
	}
	if err := uow.AdminRepository().Remove(ctx, targetID); err != nil {
		return fmt.Errorf("failed to delete admin row for %d: %w", targetID, err)
	}
	if err := uow.UserRepository().Delete(ctx, targetID); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", targetID, err)
	}

	uow.EventBus().Publish(events.UserErasedEvent{TelegramID: targetID, ErasedBy: actorID})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SetAdminUsername stores the public contact handle shown to users.
func (s *adminService) SetAdminUsername(ctx context.Context, username string) error {
	return s.setSetting(ctx, models.SettingAdminUsername, username)
}

// AdminUsername returns the public contact handle, or "".
func (s *adminService) AdminUsername(ctx context.Context) (string, error) {
	return s.getSetting(ctx, models.SettingAdminUsername)
}

// SetPaymentInfo stores the payment destination details.
func (s *adminService) SetPaymentInfo(ctx context.Context, info PaymentInfo) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings := uow.SettingRepository()
	pairs := map[string]string{
		models.SettingCCPNumber:       info.CCPNumber,
		models.SettingBaridimobNumber: info.BaridimobNumber,
		models.SettingBaridiMoney:     info.BaridiMoneyNum,
		models.SettingBeneficiaryName: info.BeneficiaryName,
	}
	for key, value := range pairs {
		if err := settings.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// GetPaymentInfo returns the stored payment destination details.
func (s *adminService) GetPaymentInfo(ctx context.Context) (*PaymentInfo, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings := uow.SettingRepository()
	info := &PaymentInfo{}
	var err error
	if info.CCPNumber, err = settings.Get(ctx, models.SettingCCPNumber); err != nil {
		return nil, fmt.Errorf("failed to read ccp number: %w", err)
	}
	if info.BaridimobNumber, err = settings.Get(ctx, models.SettingBaridimobNumber); err != nil {
		return nil, fmt.Errorf("failed to read baridimob number: %w", err)
	}
	if info.BaridiMoneyNum, err = settings.Get(ctx, models.SettingBaridiMoney); err != nil {
		return nil, fmt.Errorf("failed to read baridimoney number: %w", err)
	}
	if info.BeneficiaryName, err = settings.Get(ctx, models.SettingBeneficiaryName); err != nil {
		return nil, fmt.Errorf("failed to read beneficiary name: %w", err)
	}
	return info, nil
}

// LinkGroup records the managed group.
func (s *adminService) LinkGroup(ctx context.Context, groupID int64, title string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings := uow.SettingRepository()
	if err := settings.Set(ctx, models.SettingLinkedGroupID, strconv.FormatInt(groupID, 10)); err != nil {
		return fmt.Errorf("failed to set linked group id: %w", err)
	}
	if err := settings.Set(ctx, models.SettingLinkedGroupTitle, title); err != nil {
		return fmt.Errorf("failed to set linked group title: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// LinkedGroup returns the managed group id and title, or ErrNoLinkedGroup
// when none is configured.
func (s *adminService) LinkedGroup(ctx context.Context) (int64, string, error) {
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

func (s *adminService) setSetting(ctx context.Context, key, value string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SettingRepository().Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *adminService) getSetting(ctx context.Context, key string) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	value, err := uow.SettingRepository().Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}
