package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

type SettingsHandler struct {
	settingsService *app.SettingsService
}

type SelectModelRequest struct {
	ModelID string `json:"model_id"`
}

type PromptRequest struct {
	PromptTemplate string `json:"prompt_template"`
}

func NewSettingsHandler(settingsService *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) ListModels(c *gin.Context) {
	models, err := h.settingsService.ListModels(c.Request.Context())
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, models)
}

func (h *SettingsHandler) SelectedModel(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	modelID, err := h.settingsService.SelectedModel(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"model_id": modelID})
}

func (h *SettingsHandler) SelectModel(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SelectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.settingsService.SelectModel(c.Request.Context(), userID, req.ModelID); err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"model_id": req.ModelID})
}

func (h *SettingsHandler) GetPrompt(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	tpl, err := h.settingsService.GetTemplate(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"prompt_template": tpl})
}

func (h *SettingsHandler) SetPrompt(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.settingsService.SetTemplate(c.Request.Context(), userID, req.PromptTemplate); err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"prompt_template": req.PromptTemplate})
}
