package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

// Store bundles the gorm repositories into one storage backend.
type Store struct {
	*UserRepository
	*ChunkRepository
	*DocumentRepository
	*ChatRepository
	*SettingsRepository

	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		UserRepository:     NewUserRepository(db),
		ChunkRepository:    NewChunkRepository(db),
		DocumentRepository: NewDocumentRepository(db),
		ChatRepository:     NewChatRepository(db),
		SettingsRepository: NewSettingsRepository(db),
		db:                 db,
	}
}

// Migrate creates or updates every table the store uses.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.Chunk{},
		&model.ChatTurn{},
		&model.PromptTemplate{},
		&model.ModelSelection{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
