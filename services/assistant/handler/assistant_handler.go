package handler

import (
	"context"
	"net/http"

	assistant "farmerconnect/internal/assistantService"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

type AssistantServiceInterface interface {
	Chat(ctx context.Context, message string, history []assistant.Turn) (assistant.ChatReply, error)
}

type AssistantHandler struct {
	service AssistantServiceInterface
}

func NewAssistantHandler(service AssistantServiceInterface) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// ChatHandler handles POST /ai/chat
func (h *AssistantHandler) ChatHandler(c *gin.Context) {
	var req helpers.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ChatHandler", err)
		return
	}
	userID, _ := helpers.CurrentUser(c)

	history := make([]assistant.Turn, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, assistant.Turn{Role: t.Role, Text: t.Text})
	}

	reply, err := h.service.Chat(c.Request.Context(), req.Message, history)
	if err != nil {
		helpers.RespondError(c, "ChatHandler", "assistant request failed", err, map[string]any{"user_id": userID, "history": len(history)})
		return
	}

	utils.JSONResponse(c, http.StatusOK, reply, "reply generated successfully")
	helpers.LogSuccess("ChatHandler", "reply generated", map[string]any{"user_id": userID, "history": len(reply.History)})
}
