package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/marcoalfans/manud-be/app/dto"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
)

// ChatbotHandler proxies travel questions to the generative model
type ChatbotHandler struct {
	baseHandler
	chatbotFlow businessflow.ChatbotFlow
}

func NewChatbotHandler(chatbotFlow businessflow.ChatbotFlow, log logging.Logger, timeout time.Duration) *ChatbotHandler {
	return &ChatbotHandler{baseHandler: newBaseHandler(log, timeout), chatbotFlow: chatbotFlow}
}

// Chat answers one prompt within a conversation
// @Summary Travel Chatbot
// @Description Omit sessionId to start a conversation; reuse the returned one to continue it
// @Tags Chatbot
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Prompt"
// @Success 200 {object} dto.APIResponse{data=dto.ChatResponse} "Reply"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 502 {object} dto.APIResponse "Chatbot upstream failure"
// @Router /api/v1/chatbot [post]
func (h *ChatbotHandler) Chat(c fiber.Ctx) error {
	var req dto.ChatRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/chatbot")
	defer cancel()

	resp, err := h.chatbotFlow.Chat(ctx, &req)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Chat Success", resp)
}

// Forget drops a conversation's history
// @Summary Forget Conversation
// @Tags Chatbot
// @Produce json
// @Param sessionId path string true "Conversation id"
// @Success 200 {object} dto.APIResponse "Conversation deleted"
// @Router /api/v1/chatbot/{sessionId} [delete]
func (h *ChatbotHandler) Forget(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if _, err := uuid.Parse(sessionID); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/chatbot/:sessionId")
	defer cancel()

	if err := h.chatbotFlow.Forget(ctx, sessionID); err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Conversation deleted", nil)
}
