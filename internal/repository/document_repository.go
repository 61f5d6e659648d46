package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) SetChunkCount(ctx context.Context, ownerID, documentID uint, count int) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND owner_id = ?", documentID, ownerID).
		Update("chunk_count", count)
	if res.Error != nil {
		return fmt.Errorf("update document chunk count failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update document chunk count failed: document %d not found", documentID)
	}
	return nil
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, ownerID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ownerID uint) error {
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents failed: %w", err)
	}
	return nil
}
