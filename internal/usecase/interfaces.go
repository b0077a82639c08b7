package usecase

import "context"

// AttachmentVerifier confirms that an uploaded object exists before a
// message references it.
type AttachmentVerifier interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

type TokenRevoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// SessionCloser ends every live gateway session of a user and reports how
// many were closed.
type SessionCloser interface {
	DisconnectUser(userID string) int
}
