package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ragchat/internal/export"
	"ragchat/internal/model"
)

type HistoryService struct {
	chats        ChatStore
	historyCache HistoryCache
}

func NewHistoryService(chats ChatStore, historyCache HistoryCache) *HistoryService {
	return &HistoryService{chats: chats, historyCache: historyCache}
}

// List returns the owner's turns in insertion order, from the cache when it
// holds a clean copy.
func (s *HistoryService) List(ctx context.Context, ownerID uint) ([]model.ChatTurn, error) {
	if ownerID == 0 {
		return nil, validationError("list_history", "owner_id is required")
	}

	if s.historyCache != nil {
		if cached, hit, err := s.historyCache.Lookup(ctx, ownerID); err == nil && hit {
			return cached, nil
		}
	}

	turns, err := s.chats.ListChat(ctx, ownerID)
	if err != nil {
		return nil, newError(ErrStore, "list_history", err)
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	if s.historyCache != nil {
		_ = s.historyCache.Fill(ctx, ownerID, turns)
	}
	return turns, nil
}

// Clear deletes every turn of the owner. Other owners are untouched.
func (s *HistoryService) Clear(ctx context.Context, ownerID uint) error {
	if ownerID == 0 {
		return validationError("clear_history", "owner_id is required")
	}
	if s.historyCache != nil {
		_ = s.historyCache.Invalidate(ctx, ownerID)
	}
	if err := s.chats.ClearChat(ctx, ownerID); err != nil {
		return newError(ErrStore, "clear_history", err)
	}
	if s.historyCache != nil {
		// refresh the marker so it outlives a slow delete
		_ = s.historyCache.Invalidate(ctx, ownerID)
	}
	return nil
}

// Export writes the owner's history to w in the given format.
func (s *HistoryService) Export(ctx context.Context, ownerID uint, format export.Format, w io.Writer) error {
	turns, err := s.List(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := export.Write(w, format, turns); err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return newError(ErrValidation, "export_history", err)
		}
		return fmt.Errorf("export history failed: %w", err)
	}
	return nil
}
