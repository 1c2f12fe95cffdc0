package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"doorman/models"
	"doorman/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSubscriberLister struct {
	mock.Mock
}

func (m *mockSubscriberLister) AllActive(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *mockSubscriberLister) ExpiringWithin(ctx context.Context, days int) ([]*models.User, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) ReconcileExpired(ctx context.Context) (*service.ReconcileReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileReport), args.Error(1)
}

type mockAdminLister struct {
	mock.Mock
}

func (m *mockAdminLister) Admins(ctx context.Context) ([]*models.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Admin), args.Error(1)
}

type mockQuizStats struct {
	mock.Mock
}

func (m *mockQuizStats) QuizStats(ctx context.Context) (*models.QuizStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizStats), args.Error(1)
}

func TestNextDailyRun(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) // Monday

	// Before today's run: wait until today.
	assert.Equal(t, 2*time.Hour, nextDailyRun(base, 10))

	// At or past today's run: wait until tomorrow.
	assert.Equal(t, 24*time.Hour, nextDailyRun(base.Add(2*time.Hour), 10))
	assert.Equal(t, 23*time.Hour, nextDailyRun(base.Add(3*time.Hour), 10))
}

func TestNextWeeklyRun(t *testing.T) {
	monday := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// Monday before the hour: run today.
	assert.Equal(t, time.Hour, nextWeeklyRun(monday, time.Monday, 9))

	// Monday past the hour: run next Monday.
	assert.Equal(t, 7*24*time.Hour-time.Hour, nextWeeklyRun(monday.Add(2*time.Hour), time.Monday, 9))

	// Mid-week: run the coming Monday.
	wednesday := monday.AddDate(0, 0, 2)
	assert.Equal(t, 5*24*time.Hour+time.Hour, nextWeeklyRun(wednesday, time.Monday, 9))
}

func TestReminderWorker_Run_IsolatesDeliveryFailures(t *testing.T) {
	ctx := context.Background()
	subscribers := new(mockSubscriberLister)
	messenger := new(service.MockMessenger)

	end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 2)
	expiring := []*models.User{
		{TelegramID: 100, SubscriptionEnd: &end},
		{TelegramID: 200, SubscriptionEnd: &end},
	}

	subscribers.On("ExpiringWithin", ctx, 3).Return(expiring, nil)
	// The first recipient blocked the bot; the second must still be reached.
	messenger.On("SendMessage", ctx, int64(100), mock.AnythingOfType("string")).
		Return(0, service.ErrRecipientUnreachable)
	messenger.On("SendMessage", ctx, int64(200), mock.AnythingOfType("string")).
		Return(1, nil)

	worker := NewReminderWorker(subscribers, messenger, 3)
	worker.Run(ctx)

	messenger.AssertExpectations(t)
}

func TestBroadcastWorker_Run(t *testing.T) {
	ctx := context.Background()
	subscribers := new(mockSubscriberLister)
	quizStats := new(mockQuizStats)
	messenger := new(service.MockMessenger)

	subscribers.On("AllActive", ctx).Return([]*models.User{
		{TelegramID: 100},
		{TelegramID: 200},
	}, nil)
	quizStats.On("QuizStats", ctx).Return(&models.QuizStats{
		TotalAttempts:      10,
		AverageScore:       72.5,
		WeeklyParticipants: 4,
	}, nil)
	messenger.On("SendMessage", ctx, int64(100), mock.AnythingOfType("string")).Return(1, nil)
	messenger.On("SendMessage", ctx, int64(200), mock.AnythingOfType("string")).Return(2, nil)

	worker := NewBroadcastWorker(subscribers, quizStats, messenger)
	worker.Run(ctx)

	messenger.AssertExpectations(t)
}

func TestReconcileWorker_Run_SendsSummaryToAdmins(t *testing.T) {
	ctx := context.Background()
	reconciler := new(mockReconciler)
	admins := new(mockAdminLister)
	messenger := new(service.MockMessenger)

	reconciler.On("ReconcileExpired", ctx).Return(&service.ReconcileReport{
		Expired:  3,
		Removed:  2,
		Notified: 2,
		Failed:   1,
	}, nil)
	admins.On("Admins", ctx).Return([]*models.Admin{{TelegramID: 900}}, nil)
	messenger.On("SendMessage", ctx, int64(900), mock.AnythingOfType("string")).Return(1, nil)

	worker := NewReconcileWorker(reconciler, admins, messenger)
	worker.Run(ctx)

	messenger.AssertExpectations(t)
}

func TestReconcileWorker_Run_QuietWhenNothingExpired(t *testing.T) {
	ctx := context.Background()
	reconciler := new(mockReconciler)
	admins := new(mockAdminLister)
	messenger := new(service.MockMessenger)

	reconciler.On("ReconcileExpired", ctx).Return(&service.ReconcileReport{}, nil)

	worker := NewReconcileWorker(reconciler, admins, messenger)
	worker.Run(ctx)

	admins.AssertNotCalled(t, "Admins", mock.Anything)
	messenger.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileWorker_Run_ReconcileFailureDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	reconciler := new(mockReconciler)
	messenger := new(service.MockMessenger)

	reconciler.On("ReconcileExpired", ctx).Return(nil, errors.New("db down"))

	worker := NewReconcileWorker(reconciler, new(mockAdminLister), messenger)
	worker.Run(ctx)

	messenger.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}
