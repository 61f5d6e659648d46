package app

import (
	"context"
	"fmt"
	"strings"

	"ragchat/internal/model"
	"ragchat/internal/prompt"
)

// SettingsService owns the per-owner prompt template and model selection.
// Both live in the store; nothing is kept in process memory.
type SettingsService struct {
	templates  TemplateStore
	selections ModelSelectionStore
	generator  Generator
}

func NewSettingsService(templates TemplateStore, selections ModelSelectionStore, generator Generator) *SettingsService {
	return &SettingsService{templates: templates, selections: selections, generator: generator}
}

// GetTemplate returns the owner's template, or ErrNotFound when none was set.
func (s *SettingsService) GetTemplate(ctx context.Context, ownerID uint) (string, error) {
	if ownerID == 0 {
		return "", validationError("get_template", "owner_id is required")
	}
	tpl, ok, err := s.templates.GetTemplate(ctx, ownerID)
	if err != nil {
		return "", newError(ErrStore, "get_template", err)
	}
	if !ok {
		return "", newError(ErrNotFound, "get_template", fmt.Errorf("no prompt template for owner %d", ownerID))
	}
	return tpl, nil
}

// SetTemplate overwrites the owner's template after checking its
// placeholder syntax.
func (s *SettingsService) SetTemplate(ctx context.Context, ownerID uint, template string) error {
	if ownerID == 0 {
		return validationError("set_template", "owner_id is required")
	}
	if strings.TrimSpace(template) == "" {
		return validationError("set_template", "prompt_template is required")
	}
	if err := prompt.Validate(template); err != nil {
		return newError(ErrTemplate, "set_template", err)
	}
	if err := s.templates.SetTemplate(ctx, ownerID, template); err != nil {
		return newError(ErrStore, "set_template", err)
	}
	return nil
}

func (s *SettingsService) ListModels(ctx context.Context) ([]model.LLMModel, error) {
	models, err := s.generator.ListModels(ctx)
	if err != nil {
		return nil, newError(ErrGeneration, "list_models", err)
	}
	if models == nil {
		models = []model.LLMModel{}
	}
	return models, nil
}

// SelectModel stores modelID as the owner's selection. The id must be one
// the backend lists.
func (s *SettingsService) SelectModel(ctx context.Context, ownerID uint, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if ownerID == 0 || modelID == "" {
		return validationError("select_model", "owner_id and model_id are required")
	}
	models, err := s.ListModels(ctx)
	if err != nil {
		return err
	}
	known := false
	for _, m := range models {
		if m.ID == modelID {
			known = true
			break
		}
	}
	if !known {
		return validationError("select_model", fmt.Sprintf("unknown model %q", modelID))
	}
	if err := s.selections.SetModelSelection(ctx, ownerID, modelID); err != nil {
		return newError(ErrStore, "select_model", err)
	}
	return nil
}

func (s *SettingsService) SelectedModel(ctx context.Context, ownerID uint) (string, error) {
	if ownerID == 0 {
		return "", validationError("selected_model", "owner_id is required")
	}
	modelID, ok, err := s.selections.GetModelSelection(ctx, ownerID)
	if err != nil {
		return "", newError(ErrStore, "selected_model", err)
	}
	if !ok {
		return "", newError(ErrNotFound, "selected_model", fmt.Errorf("no model selected for owner %d", ownerID))
	}
	return modelID, nil
}
