package usecase

import (
	"context"
	"fmt"
	"time"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"
	"contentpilot/infrastructure/logger"
)

// tokenExpiryBuffer is how far ahead of the stored expiry a token is treated
// as already expired. Publishing with a token this close to expiry risks
// failing mid-flow, so the guard rejects it before any network call.
const tokenExpiryBuffer = 24 * time.Hour

// ConnectionGuard vets a user's platform connection before a publish and
// invalidates it when the platform reports the token dead.
type ConnectionGuard struct {
	connRepo repository.ISocialConnection
	now      func() time.Time
}

func NewConnectionGuard(connRepo repository.ISocialConnection) *ConnectionGuard {
	return &ConnectionGuard{connRepo: connRepo, now: time.Now}
}

// Ensure returns the active connection for user/platform, or a typed error
// describing why publishing cannot proceed. A token expiring inside the
// buffer window is marked expired in the store before the error is returned,
// so the user sees the reconnect prompt without a platform round trip.
func (g *ConnectionGuard) Ensure(ctx context.Context, userID string, platform model.Platform) (*model.SocialConnection, error) {
	conn, err := g.connRepo.GetConnection(ctx, userID, platform)
	if err != nil {
		return nil, model.NewPublishError(model.ErrCodeAuthFailed, "connection lookup failed", err)
	}
	if conn == nil {
		return nil, model.NewPublishError(model.ErrCodeAuthFailed,
			fmt.Sprintf("no %s connection for this account", platform), nil)
	}
	switch conn.Status {
	case model.ConnectionStatusActive:
	case model.ConnectionStatusExpired:
		return nil, model.NewPublishError(model.ErrCodeTokenExpired,
			fmt.Sprintf("%s connection expired, reconnect required", platform), nil)
	default:
		return nil, model.NewPublishError(model.ErrCodeAuthFailed,
			fmt.Sprintf("%s connection is %s", platform, conn.Status), nil)
	}
	if conn.TokenExpiresAt != nil && !conn.TokenExpiresAt.After(g.now().Add(tokenExpiryBuffer)) {
		transitioned, markErr := g.connRepo.MarkConnectionStatus(ctx, conn.ID, model.ConnectionStatusExpired)
		if markErr != nil {
			logger.GetLogger().WithField("connection_id", conn.ID).
				Errorf("failed to mark connection expired: %v", markErr)
		} else if transitioned {
			logger.GetLogger().WithField("connection_id", conn.ID).
				WithField("platform", string(platform)).
				Info("connection marked expired before publish")
		}
		return nil, model.NewPublishError(model.ErrCodeTokenExpired,
			fmt.Sprintf("%s token expires within %s, reconnect required", platform, tokenExpiryBuffer), nil)
	}
	return conn, nil
}

// HandlePlatformError invalidates the connection when a platform call came
// back with a token-expired rejection. Safe to call with any error; only the
// token_expired class triggers the transition, and the store guarantees the
// transition happens once even under concurrent workers.
func (g *ConnectionGuard) HandlePlatformError(ctx context.Context, conn *model.SocialConnection, err error) {
	if conn == nil || err == nil {
		return
	}
	perr := model.ClassifyError(err)
	if perr.Code != model.ErrCodeTokenExpired {
		return
	}
	transitioned, markErr := g.connRepo.MarkConnectionStatus(ctx, conn.ID, model.ConnectionStatusExpired)
	if markErr != nil {
		logger.GetLogger().WithField("connection_id", conn.ID).
			Errorf("failed to invalidate rejected connection: %v", markErr)
		return
	}
	if transitioned {
		logger.GetLogger().WithField("connection_id", conn.ID).
			WithField("platform", string(conn.Platform)).
			Info("connection invalidated after platform token rejection")
	}
}
