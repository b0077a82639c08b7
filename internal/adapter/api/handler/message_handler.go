package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/usecase"
	"freshkart/pkg/response"
	"freshkart/pkg/utils"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Kind       string `json:"kind" validate:"omitempty,oneof=text image file product"`
	Attachment string `json:"attachment"`
	ReplyTo    string `json:"reply_to"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" query:"emoji" validate:"required,max=32"`
}

func (h *MessageHandler) ListMessages(c echo.Context) error {
	page := utils.GetPaginationParams(c, 50)

	msgs, total, err := h.messageUseCase.List(c.Request().Context(), middleware.UserID(c), c.Param("id"), page.PageSize, page.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, msgs, total, page.PageSize, page.Offset)
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Send(c.Request().Context(), middleware.UserID(c), usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		Kind:           req.Kind,
		Attachment:     req.Attachment,
		ReplyTo:        req.ReplyTo,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

func (h *MessageHandler) EditMessage(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Edit(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, msg)
}

func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	if err := h.messageUseCase.Delete(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId")); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) AddReaction(c echo.Context) error {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.React(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"), req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, msg)
}

// RemoveReaction takes the emoji from the query string, since DELETE
// bodies are dropped by some clients.
func (h *MessageHandler) RemoveReaction(c echo.Context) error {
	var req reactionRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Unreact(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"), req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, msg)
}

func (h *MessageHandler) MarkConversationRead(c echo.Context) error {
	updated, err := h.messageUseCase.MarkRead(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"updated": updated})
}
