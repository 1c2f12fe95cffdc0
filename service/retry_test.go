package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNotify_Delivered(t *testing.T) {
	ctx := context.Background()
	mockMessenger := new(MockMessenger)

	mockMessenger.On("SendMessage", ctx, int64(100), "hello").Return(42, nil).Once()

	messageID, result := Notify(ctx, mockMessenger, 100, "hello")

	assert.Equal(t, Delivered, result)
	assert.Equal(t, 42, messageID)
	mockMessenger.AssertExpectations(t)
}

func TestNotify_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	mockMessenger := new(MockMessenger)

	mockMessenger.On("SendMessage", ctx, int64(100), "hello").
		Return(0, errors.New("timeout")).Once()
	mockMessenger.On("SendMessage", ctx, int64(100), "hello").
		Return(42, nil).Once()

	messageID, result := Notify(ctx, mockMessenger, 100, "hello")

	assert.Equal(t, Delivered, result)
	assert.Equal(t, 42, messageID)
	mockMessenger.AssertExpectations(t)
}

func TestNotify_PermanentFailureDoesNotRetry(t *testing.T) {
	ctx := context.Background()
	mockMessenger := new(MockMessenger)

	wrapped := fmt.Errorf("send to 100: %w", ErrRecipientUnreachable)
	mockMessenger.On("SendMessage", ctx, int64(100), "hello").Return(0, wrapped).Once()

	_, result := Notify(ctx, mockMessenger, 100, "hello")

	assert.Equal(t, PermanentFailure, result)
	mockMessenger.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestNotify_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	mockMessenger := new(MockMessenger)

	mockMessenger.On("SendMessage", ctx, int64(100), "hello").
		Return(0, errors.New("timeout"))

	_, result := Notify(ctx, mockMessenger, 100, "hello")

	assert.Equal(t, TransientFailure, result)
	mockMessenger.AssertNumberOfCalls(t, "SendMessage", deliveryAttempts)
}

func TestNotify_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mockMessenger := new(MockMessenger)

	mockMessenger.On("SendMessage", ctx, int64(100), "hello").
		Return(0, errors.New("timeout")).Once().
		Run(func(mock.Arguments) { cancel() })

	_, result := Notify(ctx, mockMessenger, 100, "hello")

	assert.Equal(t, TransientFailure, result)
	mockMessenger.AssertNumberOfCalls(t, "SendMessage", 1)
}
