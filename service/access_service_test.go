package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"doorman/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAccessService_GrantAccess(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingRepo := new(MockSettingRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(nil, nil, nil, nil, mockSettingRepo, nil)

	registry := NewInviteRegistry(InviteTTL)
	service := NewAccessService(mockFactory, mockMessenger, registry)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupID).Return("-1001", nil)
	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupTitle).Return("Premium Group", nil)
	mockMessenger.On("CreateOneTimeInvite", ctx, int64(-1001), InviteTTL).
		Return("https://t.me/+abc", nil)
	mockMessenger.On("SendMessage", ctx, int64(100), mock.MatchedBy(func(text string) bool {
		return len(text) > 0
	})).Return(42, nil)

	err := service.GrantAccess(ctx, 100)

	assert.NoError(t, err)
	assert.Equal(t, 1, registry.Len())
	mockMessenger.AssertExpectations(t)
}

func TestAccessService_GrantAccess_NoLinkedGroup(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingRepo := new(MockSettingRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(nil, nil, nil, nil, mockSettingRepo, nil)

	service := NewAccessService(mockFactory, mockMessenger, NewInviteRegistry(InviteTTL))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupID).Return("", nil)

	err := service.GrantAccess(ctx, 100)

	assert.ErrorIs(t, err, ErrNoLinkedGroup)
	mockMessenger.AssertNotCalled(t, "CreateOneTimeInvite", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccessService_HandleJoin_TearsDownInvite(t *testing.T) {
	ctx := context.Background()

	mockMessenger := new(MockMessenger)
	registry := NewInviteRegistry(InviteTTL)
	service := NewAccessService(new(MockUnitOfWorkFactory), mockMessenger, registry)

	registry.Put(100, "https://t.me/+abc", 42)

	mockMessenger.On("RevokeInvite", ctx, int64(-1001), "https://t.me/+abc").Return(nil)
	mockMessenger.On("DeleteMessage", ctx, int64(100), 42).Return(nil)
	mockMessenger.On("SendMessage", ctx, int64(100), mock.AnythingOfType("string")).Return(43, nil)

	err := service.HandleJoin(ctx, -1001, 100)

	assert.NoError(t, err)
	assert.Equal(t, 0, registry.Len())
	mockMessenger.AssertExpectations(t)
}

func TestAccessService_HandleJoin_UnknownJoinerIsNoOp(t *testing.T) {
	ctx := context.Background()

	mockMessenger := new(MockMessenger)
	service := NewAccessService(new(MockUnitOfWorkFactory), mockMessenger, NewInviteRegistry(InviteTTL))

	err := service.HandleJoin(ctx, -1001, 999)

	assert.NoError(t, err)
	mockMessenger.AssertNotCalled(t, "RevokeInvite", mock.Anything, mock.Anything, mock.Anything)
	mockMessenger.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccessService_HandleJoinRequest_ApprovesActiveSubscriber(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil, nil, nil)

	service := NewAccessService(mockFactory, mockMessenger, NewInviteRegistry(InviteTTL))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByTelegramID", ctx, int64(100)).
		Return(&models.User{TelegramID: 100, HasSubscription: true}, nil)
	mockMessenger.On("ApproveJoinRequest", ctx, int64(-1001), int64(100)).Return(nil)

	approved, err := service.HandleJoinRequest(ctx, -1001, 100)

	assert.NoError(t, err)
	assert.True(t, approved)
	mockMessenger.AssertNotCalled(t, "DeclineJoinRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccessService_HandleJoinRequest_DeclinesNonSubscriber(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil, nil, nil)

	service := NewAccessService(mockFactory, mockMessenger, NewInviteRegistry(InviteTTL))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByTelegramID", ctx, int64(200)).Return(nil, nil)
	mockMessenger.On("DeclineJoinRequest", ctx, int64(-1001), int64(200)).Return(nil)
	mockMessenger.On("SendMessage", ctx, int64(200), mock.AnythingOfType("string")).Return(1, nil)

	approved, err := service.HandleJoinRequest(ctx, -1001, 200)

	assert.NoError(t, err)
	assert.False(t, approved)
	mockMessenger.AssertExpectations(t)
}

func TestAccessService_Suspend_FlipsThenRemoves(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockSettingRepo := new(MockSettingRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil, mockSettingRepo, nil)

	service := NewAccessService(mockFactory, mockMessenger, NewInviteRegistry(InviteTTL))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByTelegramID", ctx, int64(100)).
		Return(&models.User{TelegramID: 100, HasSubscription: true}, nil)
	mockUserRepo.On("SetSubscription", ctx, int64(100), false, (*time.Time)(nil)).Return(nil)
	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupID).Return("-1001", nil)
	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupTitle).Return("Premium Group", nil)
	mockMessenger.On("IsMember", ctx, int64(-1001), int64(100)).Return(true, nil)
	mockMessenger.On("BanMember", ctx, int64(-1001), int64(100)).Return(nil)
	mockMessenger.On("UnbanMember", ctx, int64(-1001), int64(100)).Return(nil)

	err := service.Suspend(ctx, 100)

	assert.NoError(t, err)
	mockUserRepo.AssertExpectations(t)
	mockMessenger.AssertExpectations(t)
}

func TestAccessService_ReconcileExpired_IsolatesFailures(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockSettingRepo := new(MockSettingRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil, mockSettingRepo, nil)

	service := NewAccessService(mockFactory, mockMessenger, NewInviteRegistry(InviteTTL))

	expired := []*models.User{
		{TelegramID: 100, FullName: "First"},
		{TelegramID: 200, FullName: "Second"},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("ExpireOverdue", ctx).Return(expired, nil)
	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupID).Return("-1001", nil)
	mockSettingRepo.On("Get", ctx, models.SettingLinkedGroupTitle).Return("Premium Group", nil)

	// First removal fails; the sweep must still process the second user,
	// and the first is told anyway since the expiry is already committed.
	mockMessenger.On("IsMember", ctx, int64(-1001), int64(100)).
		Return(false, errors.New("telegram unavailable"))
	mockMessenger.On("SendMessage", ctx, int64(100), mock.AnythingOfType("string")).Return(1, nil)
	mockMessenger.On("IsMember", ctx, int64(-1001), int64(200)).Return(true, nil)
	mockMessenger.On("BanMember", ctx, int64(-1001), int64(200)).Return(nil)
	mockMessenger.On("UnbanMember", ctx, int64(-1001), int64(200)).Return(nil)
	mockMessenger.On("SendMessage", ctx, int64(200), mock.AnythingOfType("string")).Return(1, nil)

	report, err := service.ReconcileExpired(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, report.Expired)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Notified)
	mockMessenger.AssertExpectations(t)
}

func TestAccessService_ReconcileExpired_NothingOverdue(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil, new(MockSettingRepository), nil)

	service := NewAccessService(mockFactory, mockMessenger, NewInviteRegistry(InviteTTL))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("ExpireOverdue", ctx).Return([]*models.User{}, nil)

	report, err := service.ReconcileExpired(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, report.Expired)
	mockMessenger.AssertNotCalled(t, "BanMember", mock.Anything, mock.Anything, mock.Anything)
}
