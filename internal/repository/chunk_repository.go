package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// PutChunk inserts one chunk. A duplicate source_chunk_id fails on the
// unique index instead of replacing the stored row.
func (r *ChunkRepository) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	if err := r.db.WithContext(ctx).Create(chunk).Error; err != nil {
		return fmt.Errorf("create chunk failed: %w", err)
	}
	return nil
}

// ListChunks returns the owner's chunks in insertion order.
func (r *ChunkRepository) ListChunks(ctx context.Context, ownerID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteChunks(ctx context.Context, ownerID uint) error {
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks failed: %w", err)
	}
	return nil
}
