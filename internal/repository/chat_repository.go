package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) AppendChat(ctx context.Context, turn *model.ChatTurn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("create chat turn failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListChat(ctx context.Context, ownerID uint) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list chat turns failed: %w", err)
	}
	return turns, nil
}

func (r *ChatRepository) ClearChat(ctx context.Context, ownerID uint) error {
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&model.ChatTurn{}).Error; err != nil {
		return fmt.Errorf("clear chat turns failed: %w", err)
	}
	return nil
}
