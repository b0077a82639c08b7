package handler

import (
	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/usecase"
	"freshkart/pkg/response"
)

type SessionHandler struct {
	sessionUseCase *usecase.SessionUseCase
}

func NewSessionHandler(sessionUseCase *usecase.SessionUseCase) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: sessionUseCase,
	}
}

// Logout signs the caller out everywhere and tears down their live
// subscriptions.
func (h *SessionHandler) Logout(c echo.Context) error {
	closed, err := h.sessionUseCase.Logout(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"closed_sessions": closed})
}
