package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contentpilot/domain/model"
	"contentpilot/usecase"
)

func activeConnection(expiresIn time.Duration) *model.SocialConnection {
	exp := time.Now().Add(expiresIn)
	return &model.SocialConnection{
		ID:             "conn-1",
		UserID:         "user-1",
		Platform:       model.PlatformInstagram,
		AccessToken:    "token",
		AccountID:      "acct-1",
		TokenExpiresAt: &exp,
		Status:         model.ConnectionStatusActive,
	}
}

func TestGuardPassesHealthyConnection(t *testing.T) {
	connRepo := new(MockConnectionRepo)
	guard := usecase.NewConnectionGuard(connRepo)
	conn := activeConnection(90 * 24 * time.Hour)
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformInstagram).Return(conn, nil).Once()

	got, err := guard.Ensure(context.Background(), "user-1", model.PlatformInstagram)
	require.Nil(t, err)
	assert.Equal(t, "token", got.AccessToken)
	connRepo.AssertNotCalled(t, "MarkConnectionStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuardRejectsMissingConnection(t *testing.T) {
	connRepo := new(MockConnectionRepo)
	guard := usecase.NewConnectionGuard(connRepo)
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformFacebook).Return(nil, nil).Once()

	_, err := guard.Ensure(context.Background(), "user-1", model.PlatformFacebook)
	require.NotNil(t, err)
	perr := model.ClassifyError(err)
	assert.Equal(t, model.ErrCodeAuthFailed, perr.Code)
	assert.True(t, perr.UserActionable())
}

func TestGuardMarksExpiringTokenWithoutNetwork(t *testing.T) {
	connRepo := new(MockConnectionRepo)
	guard := usecase.NewConnectionGuard(connRepo)
	// Expires in 6 hours, inside the 24h buffer.
	conn := activeConnection(6 * time.Hour)
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformInstagram).Return(conn, nil).Once()
	connRepo.On("MarkConnectionStatus", mock.Anything, "conn-1", model.ConnectionStatusExpired).Return(true, nil).Once()

	_, err := guard.Ensure(context.Background(), "user-1", model.PlatformInstagram)
	require.NotNil(t, err)
	perr := model.ClassifyError(err)
	assert.Equal(t, model.ErrCodeTokenExpired, perr.Code)
	assert.False(t, perr.Retryable())
	connRepo.AssertExpectations(t)
}

func TestGuardRejectsAlreadyExpiredStatus(t *testing.T) {
	connRepo := new(MockConnectionRepo)
	guard := usecase.NewConnectionGuard(connRepo)
	conn := activeConnection(90 * 24 * time.Hour)
	conn.Status = model.ConnectionStatusExpired
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformInstagram).Return(conn, nil).Once()

	_, err := guard.Ensure(context.Background(), "user-1", model.PlatformInstagram)
	require.NotNil(t, err)
	assert.Equal(t, model.ErrCodeTokenExpired, model.ClassifyError(err).Code)
	connRepo.AssertNotCalled(t, "MarkConnectionStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuardInvalidatesOnPlatformTokenRejection(t *testing.T) {
	connRepo := new(MockConnectionRepo)
	guard := usecase.NewConnectionGuard(connRepo)
	conn := activeConnection(90 * 24 * time.Hour)
	connRepo.On("MarkConnectionStatus", mock.Anything, "conn-1", model.ConnectionStatusExpired).Return(true, nil).Once()

	guard.HandlePlatformError(context.Background(), conn,
		model.NewPublishError(model.ErrCodeTokenExpired, "session expired", nil))
	connRepo.AssertExpectations(t)
}

func TestGuardIgnoresNonTokenErrors(t *testing.T) {
	connRepo := new(MockConnectionRepo)
	guard := usecase.NewConnectionGuard(connRepo)
	conn := activeConnection(90 * 24 * time.Hour)

	guard.HandlePlatformError(context.Background(), conn,
		model.NewPublishError(model.ErrCodeRateLimited, "slow down", nil))
	guard.HandlePlatformError(context.Background(), conn, errors.New("plain error"))
	connRepo.AssertNotCalled(t, "MarkConnectionStatus", mock.Anything, mock.Anything, mock.Anything)
}
