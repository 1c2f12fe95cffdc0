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

func TestPaymentService_Submit(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockClaimRepo := new(MockClaimRepository)
	mockAdminRepo := new(MockAdminRepository)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, mockAdminRepo, nil, mockClaimRepo, nil, nil)

	service := NewPaymentService(mockFactory, mockMessenger, new(MockRoleResolver), new(MockAccessGranter))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("Upsert", ctx, int64(100), "payer", "Payer One").
		Return(&models.User{TelegramID: 100}, nil)
	mockClaimRepo.On("Create", ctx, mock.MatchedBy(func(c *models.PaymentClaim) bool {
		return c.TelegramID == 100 &&
			c.PlanName == "Quarterly" &&
			c.Status == models.ClaimPending
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.PaymentClaim).ID = 7
	})
	mockAdminRepo.On("All", ctx).Return([]*models.Admin{{TelegramID: 900}}, nil)
	mockMessenger.On("SendMessage", ctx, int64(900), mock.AnythingOfType("string")).Return(1, nil)

	claim, err := service.Submit(ctx, 100, "payer", "Payer One", "quarterly")

	assert.NoError(t, err)
	assert.Equal(t, int64(7), claim.ID)
	assert.Equal(t, models.ClaimPending, claim.Status)
	mockClaimRepo.AssertExpectations(t)
	mockMessenger.AssertExpectations(t)
}

func TestPaymentService_Approve_ActivatesAndGrantsOnce(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockClaimRepo := new(MockClaimRepository)
	mockRoles := new(MockRoleResolver)
	mockAccess := new(MockAccessGranter)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, mockClaimRepo, nil, nil)

	service := NewPaymentService(mockFactory, mockMessenger, mockRoles, mockAccess)

	pending := &models.PaymentClaim{
		ID:         7,
		TelegramID: 100,
		PlanName:   "Quarterly",
		Status:     models.ClaimPending,
	}
	expectedEnd := AddDays(Today(), 90)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRoles.On("RoleOf", ctx, int64(900)).Return(models.RoleAdmin, nil)
	mockClaimRepo.On("LatestPending", ctx, int64(100)).Return(pending, nil)
	mockClaimRepo.On("Resolve", ctx, int64(7), models.ClaimApproved).Return(true, nil)
	mockUserRepo.On("SetSubscription", ctx, int64(100), true, mock.MatchedBy(func(end *time.Time) bool {
		return end != nil && end.Equal(expectedEnd)
	})).Return(nil)
	mockAccess.On("GrantAccess", ctx, int64(100)).Return(nil).Once()

	claim, err := service.Approve(ctx, 900, 100)

	assert.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, claim.Status)
	mockClaimRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockAccess.AssertExpectations(t)
}

func TestPaymentService_Approve_SecondApproveFindsNothing(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockClaimRepo := new(MockClaimRepository)
	mockRoles := new(MockRoleResolver)
	mockAccess := new(MockAccessGranter)
	mockUoW.SetRepositories(new(MockUserRepository), nil, nil, mockClaimRepo, nil, nil)

	service := NewPaymentService(mockFactory, new(MockMessenger), mockRoles, mockAccess)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRoles.On("RoleOf", ctx, int64(900)).Return(models.RoleAdmin, nil)
	mockClaimRepo.On("LatestPending", ctx, int64(100)).Return(nil, nil)

	_, err := service.Approve(ctx, 900, 100)

	assert.ErrorIs(t, err, ErrNoPendingClaim)
	mockAccess.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestPaymentService_Approve_ConcurrentReviewersGrantOnce(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockClaimRepo := new(MockClaimRepository)
	mockRoles := new(MockRoleResolver)
	mockAccess := new(MockAccessGranter)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, mockClaimRepo, nil, nil)

	service := NewPaymentService(mockFactory, new(MockMessenger), mockRoles, mockAccess)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRoles.On("RoleOf", ctx, mock.AnythingOfType("int64")).Return(models.RoleAdmin, nil)

	// Both reviewers read the claim while it is still pending, so the
	// resolve guard is what allows exactly one activation through.
	mockClaimRepo.On("LatestPending", ctx, int64(100)).
		Return(&models.PaymentClaim{ID: 7, TelegramID: 100, PlanName: "Monthly", Status: models.ClaimPending}, nil).Once()
	mockClaimRepo.On("LatestPending", ctx, int64(100)).
		Return(&models.PaymentClaim{ID: 7, TelegramID: 100, PlanName: "Monthly", Status: models.ClaimPending}, nil).Once()
	mockClaimRepo.On("Resolve", ctx, int64(7), models.ClaimApproved).Return(true, nil).Once()
	mockClaimRepo.On("Resolve", ctx, int64(7), models.ClaimApproved).Return(false, nil).Once()
	mockUserRepo.On("SetSubscription", ctx, int64(100), true, mock.Anything).Return(nil).Once()
	mockAccess.On("GrantAccess", ctx, int64(100)).Return(nil).Once()

	errs := make(chan error, 2)
	for _, reviewerID := range []int64{900, 901} {
		go func(id int64) {
			_, err := service.Approve(ctx, id, 100)
			errs <- err
		}(reviewerID)
	}

	var approved, alreadyHandled int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			approved++
		case errors.Is(err, ErrNoPendingClaim):
			alreadyHandled++
		default:
			t.Fatalf("unexpected approve error: %v", err)
		}
	}

	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, alreadyHandled)
	mockUserRepo.AssertExpectations(t)
	mockAccess.AssertExpectations(t)
}

func TestPaymentService_Approve_Unauthorized(t *testing.T) {
	ctx := context.Background()

	mockRoles := new(MockRoleResolver)
	mockAccess := new(MockAccessGranter)
	service := NewPaymentService(new(MockUnitOfWorkFactory), new(MockMessenger), mockRoles, mockAccess)

	mockRoles.On("RoleOf", ctx, int64(100)).Return(models.RoleSubscriber, nil)

	_, err := service.Approve(ctx, 100, 200)

	assert.ErrorIs(t, err, ErrUnauthorized)
	mockAccess.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything)
}

func TestPaymentService_Reject_NeverTouchesSubscription(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockClaimRepo := new(MockClaimRepository)
	mockRoles := new(MockRoleResolver)
	mockAccess := new(MockAccessGranter)
	mockMessenger := new(MockMessenger)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, mockClaimRepo, nil, nil)

	service := NewPaymentService(mockFactory, mockMessenger, mockRoles, mockAccess)

	pending := &models.PaymentClaim{
		ID:         8,
		TelegramID: 100,
		PlanName:   "Monthly",
		Status:     models.ClaimPending,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRoles.On("RoleOf", ctx, int64(900)).Return(models.RoleMainAdmin, nil)
	mockClaimRepo.On("LatestPending", ctx, int64(100)).Return(pending, nil)
	mockClaimRepo.On("Resolve", ctx, int64(8), models.ClaimRejected).Return(true, nil)
	mockMessenger.On("SendMessage", ctx, int64(100), mock.AnythingOfType("string")).Return(1, nil)

	claim, err := service.Reject(ctx, 900, 100)

	assert.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, claim.Status)
	mockUserRepo.AssertNotCalled(t, "SetSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockAccess.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything)
	mockClaimRepo.AssertExpectations(t)
}
