package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ragchat/internal/model"
)

// SettingsRepository stores per-owner prompt templates and model
// selections. Both tables are keyed by owner_id and written as upserts.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) GetTemplate(ctx context.Context, ownerID uint) (string, bool, error) {
	var row model.PromptTemplate
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query prompt template failed: %w", err)
	}
	return row.Template, true, nil
}

func (r *SettingsRepository) SetTemplate(ctx context.Context, ownerID uint, template string) error {
	row := model.PromptTemplate{OwnerID: ownerID, Template: template, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"template", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert prompt template failed: %w", err)
	}
	return nil
}

func (r *SettingsRepository) GetModelSelection(ctx context.Context, ownerID uint) (string, bool, error) {
	var row model.ModelSelection
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query model selection failed: %w", err)
	}
	return row.ModelID, true, nil
}

func (r *SettingsRepository) SetModelSelection(ctx context.Context, ownerID uint, modelID string) error {
	row := model.ModelSelection{OwnerID: ownerID, ModelID: modelID, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"model_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert model selection failed: %w", err)
	}
	return nil
}
