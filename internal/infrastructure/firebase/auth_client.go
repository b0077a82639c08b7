package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"freshkart/internal/domain/entity"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks an ID token, including revocation, and returns the
// caller it was issued to.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*entity.Identity, error) {
	result, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, err
	}

	return identityFromClaims(result.UID, result.Claims), nil
}

// RevokeRefreshTokens invalidates every session of uid. Tokens minted
// before the call fail VerifyToken afterwards.
func (f *FirebaseAuthClient) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return f.client.RevokeRefreshTokens(ctx, uid)
}

func identityFromClaims(uid string, claims map[string]interface{}) *entity.Identity {
	id := &entity.Identity{UserID: uid}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	return id
}
