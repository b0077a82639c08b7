package firebase

import (
	"context"
	"fmt"
	"strings"

	"freshkart/internal/domain/entity"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier accepts tokens of the form "dev:<uid>" or
// "dev:<uid>:<name>". It is wired only for STORE_BACKEND=memory in
// development, where no Firebase project is available.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (*entity.Identity, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return nil, fmt.Errorf("not a development token")
	}
	parts := strings.SplitN(strings.TrimPrefix(token, devTokenPrefix), ":", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("development token has no uid")
	}
	id := &entity.Identity{UserID: parts[0]}
	if len(parts) == 2 {
		id.Name = parts[1]
	}
	return id, nil
}
