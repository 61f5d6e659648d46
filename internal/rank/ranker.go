package rank

import (
	"context"
	"slices"
	"strings"

	"ragchat/internal/model"
)

const DefaultTopK = 5

// Scorer rates how relevant a chunk text is to a query. A score of zero or
// less means the chunk is not relevant at all.
type Scorer interface {
	Score(query, text string) float64
}

// KeywordScorer counts case-insensitive, non-overlapping occurrences of the
// whole query inside the text.
type KeywordScorer struct{}

func (KeywordScorer) Score(query, text string) float64 {
	if query == "" {
		return 0
	}
	return float64(strings.Count(strings.ToLower(text), strings.ToLower(query)))
}

// ChunkLister returns an owner's chunks in insertion order.
type ChunkLister interface {
	ListChunks(ctx context.Context, ownerID uint) ([]model.Chunk, error)
}

type Result struct {
	Chunk model.Chunk
	Score float64
}

type Ranker struct {
	chunks ChunkLister
	scorer Scorer
}

func NewRanker(chunks ChunkLister, scorer Scorer) *Ranker {
	if scorer == nil {
		scorer = KeywordScorer{}
	}
	return &Ranker{chunks: chunks, scorer: scorer}
}

// Rank returns the owner's topK most relevant chunks, best first. Chunks
// with equal scores keep their store order. No chunks or no matches yields
// an empty result and a nil error.
func (r *Ranker) Rank(ctx context.Context, ownerID uint, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	chunks, err := r.chunks.ListChunks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return Select(r.scorer, chunks, query, topK), nil
}

// Texts is Rank reduced to the chunk texts.
func (r *Ranker) Texts(ctx context.Context, ownerID uint, query string, topK int) ([]string, error) {
	results, err := r.Rank(ctx, ownerID, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
	}
	return texts, nil
}

// Select scores chunks, drops non-matching ones and keeps the best topK.
func Select(scorer Scorer, chunks []model.Chunk, query string, topK int) []Result {
	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		if s := scorer.Score(query, c.Text); s > 0 {
			results = append(results, Result{Chunk: c, Score: s})
		}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
