package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/usecase"
	"freshkart/pkg/response"
)

type TypingHandler struct {
	typingUseCase *usecase.TypingUseCase
}

func NewTypingHandler(typingUseCase *usecase.TypingUseCase) *TypingHandler {
	return &TypingHandler{
		typingUseCase: typingUseCase,
	}
}

// StartTyping refreshes the caller's indicator for one typing window.
func (h *TypingHandler) StartTyping(c echo.Context) error {
	indicator, err := h.typingUseCase.SetTyping(c.Request().Context(), middleware.UserID(c), middleware.UserName(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, indicator)
}

func (h *TypingHandler) StopTyping(c echo.Context) error {
	if err := h.typingUseCase.ClearTyping(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
