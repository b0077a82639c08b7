package usecase

import (
	"context"

	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
)

type SessionUseCase struct {
	revoker  TokenRevoker
	sessions SessionCloser
}

// NewSessionUseCase wires sign-out. revoker may be nil when tokens are not
// issued by Firebase, as in local memory runs.
func NewSessionUseCase(revoker TokenRevoker, sessions SessionCloser) *SessionUseCase {
	return &SessionUseCase{
		revoker:  revoker,
		sessions: sessions,
	}
}

// Logout revokes the user's refresh tokens and closes every live session,
// which cancels their subscriptions and evicts their cached snapshots.
func (uc *SessionUseCase) Logout(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.AuthenticationRequired()
	}
	if uc.revoker != nil {
		if err := uc.revoker.RevokeRefreshTokens(ctx, userID); err != nil {
			return 0, errors.Internal("Failed to revoke session", err)
		}
	}
	closed := 0
	if uc.sessions != nil {
		closed = uc.sessions.DisconnectUser(userID)
	}
	logger.Info("User %s signed out, %d live sessions closed", userID, closed)
	return closed, nil
}
