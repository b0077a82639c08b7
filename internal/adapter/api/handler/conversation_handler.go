package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/usecase"
	"freshkart/pkg/response"
	"freshkart/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type createConversationRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	ProductID     string `json:"product_id"`
}

type archiveRequest struct {
	Archived *bool `json:"archived" validate:"required"`
}

type muteRequest struct {
	Muted *bool `json:"muted" validate:"required"`
}

// CreateConversation opens the conversation with another user, or returns
// the existing one for the same pair and product.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, created, err := h.conversationUseCase.CreateOrGet(c.Request().Context(), middleware.UserID(c), req.ParticipantID, req.ProductID)
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, conv)
	}
	return response.Success(c, conv)
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	page := utils.GetPaginationParams(c, 20)

	convs, total, err := h.conversationUseCase.List(c.Request().Context(), middleware.UserID(c), page.PageSize, page.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, convs, total, page.PageSize, page.Offset)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conv, err := h.conversationUseCase.Get(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

func (h *ConversationHandler) SetArchived(c echo.Context) error {
	var req archiveRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.conversationUseCase.SetArchived(c.Request().Context(), middleware.UserID(c), c.Param("id"), *req.Archived); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"archived": *req.Archived})
}

func (h *ConversationHandler) SetMuted(c echo.Context) error {
	var req muteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.conversationUseCase.SetMuted(c.Request().Context(), middleware.UserID(c), c.Param("id"), *req.Muted); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
