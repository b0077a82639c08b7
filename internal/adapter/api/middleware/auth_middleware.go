package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"freshkart/internal/domain/entity"
	"freshkart/pkg/errors"
	"freshkart/pkg/response"
)

// TokenVerifier resolves an ID token to the caller it was issued to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*entity.Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate requires a bearer token and sets "uid" and "name" on the
// context. Browsers cannot set headers on WebSocket upgrades, so a "token"
// query parameter is accepted as well.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := tokenFromRequest(c)
		if err != nil {
			return response.Error(c, err)
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		c.Set("uid", identity.UserID)
		c.Set("name", identity.Name)
		return next(c)
	}
}

func tokenFromRequest(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.AuthenticationRequired()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// UserID returns the authenticated caller, or "" outside Authenticate.
func UserID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func UserName(c echo.Context) string {
	name, _ := c.Get("name").(string)
	return name
}
