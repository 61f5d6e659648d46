package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ragchat/internal/logger"
	"ragchat/internal/model"
	"ragchat/internal/prompt"
	"ragchat/internal/rank"
)

// ChatState is a step of the chat pipeline.
type ChatState string

const (
	StateIdle       ChatState = "idle"
	StateRetrieving ChatState = "retrieving"
	StateComposing  ChatState = "composing"
	StateGenerating ChatState = "generating"
	StatePersisting ChatState = "persisting"
	StateDone       ChatState = "done"
	StateFailed     ChatState = "failed"
)

// Retriever returns the owner's most relevant chunk texts for a query.
type Retriever interface {
	Texts(ctx context.Context, ownerID uint, query string, topK int) ([]string, error)
}

type ChatService struct {
	retriever    Retriever
	chats        ChatStore
	generator    Generator
	historyCache HistoryCache
	topK         int
	tracer       trace.Tracer
}

type ChatInput struct {
	OwnerID        uint
	Message        string
	PriorContext   []string
	ModelID        string
	PromptTemplate string
}

type ChatResult struct {
	Response      string    `json:"response"`
	RetrievedDocs []string  `json:"retrieved_docs"`
	State         ChatState `json:"-"`
	// FailedAt is the step that failed when State is StateFailed.
	FailedAt ChatState `json:"-"`
}

func NewChatService(
	retriever Retriever,
	chats ChatStore,
	generator Generator,
	historyCache HistoryCache,
	topK int,
) *ChatService {
	if topK <= 0 {
		topK = rank.DefaultTopK
	}
	return &ChatService{
		retriever:    retriever,
		chats:        chats,
		generator:    generator,
		historyCache: historyCache,
		topK:         topK,
		tracer:       otel.Tracer("ragchat/chat"),
	}
}

// Chat runs retrieve, compose, generate and persist strictly in order and
// stops at the first failure. When only the final persist step fails the
// returned result still carries the generated response, and the error
// matches both ErrStore and ErrTurnNotPersisted.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatResult, error) {
	result := &ChatResult{State: StateIdle}
	fail := func(at ChatState, err *Error) (*ChatResult, error) {
		result.State = StateFailed
		result.FailedAt = at
		logger.Warn("chat failed", "owner_id", input.OwnerID, "state", string(at), "error", err.Error())
		return result, err
	}

	// Blank messages are rejected; any other message is ranked, composed
	// and stored exactly as sent.
	message := input.Message
	modelID := strings.TrimSpace(input.ModelID)
	if err := validateChatInput(input.OwnerID, strings.TrimSpace(message), modelID, input.PromptTemplate); err != nil {
		return fail(StateIdle, err)
	}

	ctx, span := s.tracer.Start(ctx, "chat")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat.owner_id", int64(input.OwnerID)),
		attribute.String("chat.model_id", modelID),
	)

	result.State = StateRetrieving
	docs, err := s.retrieve(ctx, input.OwnerID, message)
	if err != nil {
		span.SetStatus(codes.Error, "retrieve failed")
		return fail(StateRetrieving, newError(ErrStore, string(StateRetrieving), err))
	}
	result.RetrievedDocs = docs

	result.State = StateComposing
	composed, err := prompt.Compose(input.PromptTemplate, prompt.Input{
		PriorContext: input.PriorContext,
		Docs:         docs,
		Question:     message,
	})
	if err != nil {
		span.SetStatus(codes.Error, "compose failed")
		return fail(StateComposing, newError(ErrTemplate, string(StateComposing), err))
	}

	// From here on the request context only carries values: a client that
	// goes away does not abort an in-flight backend call or the save.
	detached := context.WithoutCancel(ctx)

	result.State = StateGenerating
	response, err := s.generate(detached, modelID, composed)
	if err != nil {
		span.SetStatus(codes.Error, "generate failed")
		return fail(StateGenerating, newError(ErrGeneration, string(StateGenerating), err))
	}
	result.Response = response

	result.State = StatePersisting
	turn := &model.ChatTurn{
		OwnerID:           input.OwnerID,
		UserMessage:       message,
		AssistantResponse: response,
		ModelID:           modelID,
		CreatedAt:         time.Now(),
	}
	if err := s.chats.AppendChat(detached, turn); err != nil {
		span.SetStatus(codes.Error, "persist failed")
		return fail(StatePersisting, newError(ErrStore, string(StatePersisting), errors.Join(ErrTurnNotPersisted, err)))
	}
	s.invalidateHistory(detached, input.OwnerID)

	result.State = StateDone
	logger.Info("chat completed",
		"owner_id", input.OwnerID,
		"model_id", modelID,
		"retrieved", len(docs),
	)
	return result, nil
}

func validateChatInput(ownerID uint, message, modelID, template string) *Error {
	var missing []string
	if ownerID == 0 {
		missing = append(missing, "owner_id")
	}
	if message == "" {
		missing = append(missing, "message")
	}
	if modelID == "" {
		missing = append(missing, "model_id")
	}
	if strings.TrimSpace(template) == "" {
		missing = append(missing, "prompt_template")
	}
	if len(missing) > 0 {
		return validationError(string(StateIdle), "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

func (s *ChatService) retrieve(ctx context.Context, ownerID uint, query string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.retrieve")
	defer span.End()
	docs, err := s.retriever.Texts(ctx, ownerID, query, s.topK)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("chat.retrieved", len(docs)))
	if docs == nil {
		docs = []string{}
	}
	return docs, nil
}

func (s *ChatService) generate(ctx context.Context, modelID, composed string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.prompt_bytes", len(composed)))
	return s.generator.Generate(ctx, modelID, composed)
}

func (s *ChatService) invalidateHistory(ctx context.Context, ownerID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.Invalidate(ctx, ownerID); err != nil {
		logger.Warn("invalidate history cache failed", "owner_id", ownerID, "error", err.Error())
	}
}
