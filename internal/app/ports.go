package app

import (
	"context"

	"ragchat/internal/model"
)

// ChunkStore persists chunks scoped by owner. PutChunk never replaces an
// existing chunk; ListChunks returns insertion order.
type ChunkStore interface {
	PutChunk(ctx context.Context, chunk *model.Chunk) error
	ListChunks(ctx context.Context, ownerID uint) ([]model.Chunk, error)
	DeleteChunks(ctx context.Context, ownerID uint) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	SetChunkCount(ctx context.Context, ownerID, documentID uint, count int) error
	ListDocuments(ctx context.Context, ownerID uint) ([]model.Document, error)
	DeleteDocuments(ctx context.Context, ownerID uint) error
}

// TemplateStore keeps at most one prompt template per owner.
type TemplateStore interface {
	GetTemplate(ctx context.Context, ownerID uint) (string, bool, error)
	SetTemplate(ctx context.Context, ownerID uint, template string) error
}

// ModelSelectionStore keeps at most one selected model per owner.
type ModelSelectionStore interface {
	GetModelSelection(ctx context.Context, ownerID uint) (string, bool, error)
	SetModelSelection(ctx context.Context, ownerID uint, modelID string) error
}

type ChatStore interface {
	AppendChat(ctx context.Context, turn *model.ChatTurn) error
	ListChat(ctx context.Context, ownerID uint) ([]model.ChatTurn, error)
	ClearChat(ctx context.Context, ownerID uint) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

// Store is the full persistence contract a storage backend provides.
type Store interface {
	ChunkStore
	DocumentStore
	TemplateStore
	ModelSelectionStore
	ChatStore
	UserStore
	Ping(ctx context.Context) error
}

// Generator is the text-generation backend.
type Generator interface {
	Generate(ctx context.Context, modelID, prompt string) (string, error)
	ListModels(ctx context.Context) ([]model.LLMModel, error)
}

// FileStore keeps the raw bytes of uploaded documents.
type FileStore interface {
	Save(ownerID uint, filename string, body []byte) (string, error)
}

// HistoryCache is a read-through copy of each owner's chat turns.
// Invalidate must be called around every write to the owner's history.
type HistoryCache interface {
	Lookup(ctx context.Context, ownerID uint) ([]model.ChatTurn, bool, error)
	Fill(ctx context.Context, ownerID uint, turns []model.ChatTurn) error
	Invalidate(ctx context.Context, ownerID uint) error
}

// IngestJob is a queued ingestion request.
type IngestJob struct {
	OwnerID  uint   `json:"owner_id"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Body     []byte `json:"body"`
}

type IngestPublisher interface {
	PublishIngest(ctx context.Context, job IngestJob) error
}
