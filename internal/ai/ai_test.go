package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"

	"ragchat/internal/model"
)

func TestOpenAICompatibleGenerate(t *testing.T) {
	var gotAuth, gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Model    string        `json:"model"`
			Messages []ChatMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		if len(body.Messages) == 1 {
			gotPrompt = body.Messages[0].Content
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "k"})
	out, err := c.Generate(context.Background(), "m1", "what?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "42" || gotAuth != "Bearer k" || gotModel != "m1" || gotPrompt != "what?" {
		t.Errorf("out=%q auth=%q model=%q prompt=%q", out, gotAuth, gotModel, gotPrompt)
	}
}

func TestOpenAICompatibleErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/completions" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(OpenAIConfig{BaseURL: srv.URL})
	if _, err := c.Generate(context.Background(), "m", "p"); err == nil {
		t.Error("expected error on 502")
	}
}

func TestOpenAICompatibleListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"a"},{"id":"b","name":"Model B"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(OpenAIConfig{BaseURL: srv.URL})
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	want := []model.LLMModel{{ID: "a", DisplayName: "a"}, {ID: "b", DisplayName: "Model B"}}
	if len(models) != 2 || models[0] != want[0] || models[1] != want[1] {
		t.Errorf("models = %+v", models)
	}

	catalog := []model.LLMModel{{ID: "x", DisplayName: "X"}}
	c = NewOpenAICompatibleClient(OpenAIConfig{BaseURL: "http://127.0.0.1:0", Catalog: catalog})
	models, err = c.ListModels(context.Background())
	if err != nil || len(models) != 1 || models[0].ID != "x" {
		t.Errorf("catalog models = %+v, %v", models, err)
	}
}

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ok:" + prompt, nil
}

func (s *stubProvider) ListModels(ctx context.Context) ([]model.LLMModel, error) {
	return []model.LLMModel{{ID: "m"}}, nil
}

func TestGuardedOpensCircuit(t *testing.T) {
	stub := &stubProvider{err: errors.New("boom")}
	g := NewGuarded(stub, GuardOptions{MaxFailures: 2, OpenTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		if _, err := g.Generate(context.Background(), "m", "p"); err == nil || errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", g.State())
	}
	_, err := g.Generate(context.Background(), "m", "p")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if stub.calls != 2 {
		t.Errorf("provider called %d times while open, want 2", stub.calls)
	}
}

func TestGuardedPassesThrough(t *testing.T) {
	stub := &stubProvider{}
	g := NewGuarded(stub, GuardOptions{RatePerSecond: 1000, Burst: 10})
	out, err := g.Generate(context.Background(), "m", "hi")
	if err != nil || out != "ok:hi" {
		t.Errorf("Generate = %q, %v", out, err)
	}
}

func TestGuardedRateLimitHonorsContext(t *testing.T) {
	stub := &stubProvider{}
	g := NewGuarded(stub, GuardOptions{RatePerSecond: 0.001, Burst: 1})
	if _, err := g.Generate(context.Background(), "m", "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, "m", "second"); err == nil {
		t.Error("second call not limited")
	}
	if stub.calls != 1 {
		t.Errorf("provider calls = %d, want 1", stub.calls)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	if got := responseText(resp); got != "ab" {
		t.Errorf("responseText = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
}
