package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/export"
	"ragchat/internal/transport/http/middleware"
	"ragchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService    *app.ChatService
	historyService *app.HistoryService
}

// ChatRequest carries every pipeline input explicitly; missing fields are
// rejected by the service, never filled from stored settings.
type ChatRequest struct {
	Message        string   `json:"message"`
	Context        []string `json:"context"`
	ModelID        string   `json:"model_id"`
	PromptTemplate string   `json:"prompt_template"`
}

func NewChatHandler(chatService *app.ChatService, historyService *app.HistoryService) *ChatHandler {
	return &ChatHandler{chatService: chatService, historyService: historyService}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), app.ChatInput{
		OwnerID:        userID,
		Message:        req.Message,
		PriorContext:   req.Context,
		ModelID:        req.ModelID,
		PromptTemplate: req.PromptTemplate,
	})
	if err != nil {
		if errors.Is(err, app.ErrTurnNotPersisted) && result != nil {
			status, code, msg := response.Status(err)
			response.ErrorWithData(c, status, code, msg, result)
			return
		}
		response.AppError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	turns, err := h.historyService.List(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, turns)
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.historyService.Clear(c.Request.Context(), userID); err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"cleared": true})
}

// ExportHistory streams the owner's history as csv (default) or xlsx.
func (h *ChatHandler) ExportHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, "unsupported export format")
		return
	}

	// Buffered so a failure can still produce a JSON error response.
	var buf bytes.Buffer
	if err := h.historyService.Export(c.Request.Context(), userID, format, &buf); err != nil {
		response.AppError(c, err)
		return
	}

	filename := fmt.Sprintf("chat_history_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	return middleware.OwnerID(c)
}
