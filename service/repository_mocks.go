package service

import (
	"context"
	"time"

	"doorman/events"
	"doorman/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error) {
	args := m.Called(ctx, telegramID, username, fullName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetSubscription(ctx context.Context, telegramID int64, active bool, end *time.Time) error {
	args := m.Called(ctx, telegramID, active, end)
	return args.Error(0)
}

func (m *MockUserRepository) AllActive(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) ExpiringWithin(ctx context.Context, days int) ([]*models.User, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) ExpireOverdue(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Recent(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) CountStats(ctx context.Context) (*models.UserStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

// MockAdminRepository is a mock implementation of AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Add(ctx context.Context, telegramID int64, fullName string) error {
	args := m.Called(ctx, telegramID, fullName)
	return args.Error(0)
}

func (m *MockAdminRepository) Remove(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockAdminRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepository) All(ctx context.Context) ([]*models.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Admin), args.Error(1)
}

// MockReferralRepository is a mock implementation of ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) Create(ctx context.Context, referrerID, referredID int64) (bool, error) {
	args := m.Called(ctx, referrerID, referredID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) Stats(ctx context.Context, referrerID int64) (*models.ReferralStats, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralStats), args.Error(1)
}

func (m *MockReferralRepository) DeleteByUser(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

// MockClaimRepository is a mock implementation of ClaimRepository
type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) Create(ctx context.Context, claim *models.PaymentClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockClaimRepository) LatestPending(ctx context.Context, telegramID int64) (*models.PaymentClaim, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentClaim), args.Error(1)
}

func (m *MockClaimRepository) Resolve(ctx context.Context, claimID int64, status models.ClaimStatus) (bool, error) {
	args := m.Called(ctx, claimID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) Pending(ctx context.Context) ([]*models.PaymentClaim, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentClaim), args.Error(1)
}

func (m *MockClaimRepository) History(ctx context.Context, limit int) ([]*models.PaymentClaim, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentClaim), args.Error(1)
}

func (m *MockClaimRepository) UserHistory(ctx context.Context, telegramID int64) ([]*models.PaymentClaim, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentClaim), args.Error(1)
}

func (m *MockClaimRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClaimRepository) DeleteByUser(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

// MockSettingRepository is a mock implementation of SettingRepository
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// MockQuizResultRepository is a mock implementation of QuizResultRepository
type MockQuizResultRepository struct {
	mock.Mock
}

func (m *MockQuizResultRepository) Save(ctx context.Context, result *models.QuizResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockQuizResultRepository) ByUser(ctx context.Context, telegramID int64) ([]*models.QuizResult, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizResult), args.Error(1)
}

func (m *MockQuizResultRepository) HasCompleted(ctx context.Context, telegramID int64, quizID int) (bool, error) {
	args := m.Called(ctx, telegramID, quizID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuizResultRepository) Stats(ctx context.Context) (*models.QuizStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizStats), args.Error(1)
}

func (m *MockQuizResultRepository) DeleteByUser(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockMessenger is a mock implementation of Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	args := m.Called(ctx, chatID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockMessenger) CreateOneTimeInvite(ctx context.Context, groupID int64, ttl time.Duration) (string, error) {
	args := m.Called(ctx, groupID, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockMessenger) RevokeInvite(ctx context.Context, groupID int64, inviteLink string) error {
	args := m.Called(ctx, groupID, inviteLink)
	return args.Error(0)
}

func (m *MockMessenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

func (m *MockMessenger) IsMember(ctx context.Context, groupID, telegramID int64) (bool, error) {
	args := m.Called(ctx, groupID, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessenger) BanMember(ctx context.Context, groupID, telegramID int64) error {
	args := m.Called(ctx, groupID, telegramID)
	return args.Error(0)
}

func (m *MockMessenger) UnbanMember(ctx context.Context, groupID, telegramID int64) error {
	args := m.Called(ctx, groupID, telegramID)
	return args.Error(0)
}

func (m *MockMessenger) MemberCount(ctx context.Context, groupID int64) (int, error) {
	args := m.Called(ctx, groupID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessenger) ApproveJoinRequest(ctx context.Context, groupID, telegramID int64) error {
	args := m.Called(ctx, groupID, telegramID)
	return args.Error(0)
}

func (m *MockMessenger) DeclineJoinRequest(ctx context.Context, groupID, telegramID int64) error {
	args := m.Called(ctx, groupID, telegramID)
	return args.Error(0)
}

// MockRoleResolver is a mock implementation of RoleResolver
type MockRoleResolver struct {
	mock.Mock
}

func (m *MockRoleResolver) RoleOf(ctx context.Context, telegramID int64) (models.Role, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(models.Role), args.Error(1)
}

// MockAccessGranter is a mock implementation of AccessGranter
type MockAccessGranter struct {
	mock.Mock
}

func (m *MockAccessGranter) GrantAccess(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// assigned with SetRepositories so tests can share mocks across calls.
type MockUnitOfWork struct {
	mock.Mock
	users     UserRepository
	admins    AdminRepository
	referrals ReferralRepository
	claims    ClaimRepository
	settings  SettingRepository
	quizzes   QuizResultRepository
	bus       EventPublisher
}

func (m *MockUnitOfWork) SetRepositories(
	users UserRepository,
	admins AdminRepository,
	referrals ReferralRepository,
	claims ClaimRepository,
	settings SettingRepository,
	quizzes QuizResultRepository,
) {
	m.users = users
	m.admins = admins
	m.referrals = referrals
	m.claims = claims
	m.settings = settings
	m.quizzes = quizzes
}

func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.bus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.users
}

func (m *MockUnitOfWork) AdminRepository() AdminRepository {
	return m.admins
}

func (m *MockUnitOfWork) ReferralRepository() ReferralRepository {
	return m.referrals
}

func (m *MockUnitOfWork) ClaimRepository() ClaimRepository {
	return m.claims
}

func (m *MockUnitOfWork) SettingRepository() SettingRepository {
	return m.settings
}

func (m *MockUnitOfWork) QuizResultRepository() QuizResultRepository {
	return m.quizzes
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.bus == nil {
		return noopPublisher{}
	}
	return m.bus
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
