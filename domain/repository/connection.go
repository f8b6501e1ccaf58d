package repository

import (
	"context"

	"contentpilot/domain/model"
)

// ISocialConnection reads stored platform credentials. Workers never write
// tokens; the only mutation exposed is the guard's status transition.
type ISocialConnection interface {
	GetConnection(ctx context.Context, userID string, platform model.Platform) (*model.SocialConnection, error)
	UpsertConnection(ctx context.Context, conn *model.SocialConnection) error
	// MarkConnectionStatus transitions an active connection to the given
	// status. Returns true when this call performed the transition, false when
	// another call site already did.
	MarkConnectionStatus(ctx context.Context, connectionID string, status model.ConnectionStatus) (bool, error)
}
