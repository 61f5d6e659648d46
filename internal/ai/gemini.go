package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"ragchat/internal/model"
)

// GeminiClient generates text with Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	catalog []model.LLMModel
}

func NewGeminiClient(ctx context.Context, apiKey string, catalog []model.LLMModel) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &GeminiClient{client: client, catalog: catalog}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	resp, err := g.client.GenerativeModel(modelID).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

func (g *GeminiClient) ListModels(ctx context.Context) ([]model.LLMModel, error) {
	if len(g.catalog) > 0 {
		out := make([]model.LLMModel, len(g.catalog))
		copy(out, g.catalog)
		return out, nil
	}
	var models []model.LLMModel
	it := g.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gemini models failed: %w", err)
		}
		models = append(models, model.LLMModel{
			ID:          strings.TrimPrefix(info.Name, "models/"),
			DisplayName: info.DisplayName,
		})
	}
	return models, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
