package rank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ragchat/internal/model"
)

type fakeLister struct {
	byOwner map[uint][]model.Chunk
	err     error
}

func (f *fakeLister) ListChunks(_ context.Context, ownerID uint) ([]model.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byOwner[ownerID], nil
}

func chunksOf(owner uint, texts ...string) []model.Chunk {
	out := make([]model.Chunk, len(texts))
	for i, text := range texts {
		out[i] = model.Chunk{ID: uint(i + 1), OwnerID: owner, Ordinal: i, Text: text}
	}
	return out
}

func TestKeywordScorer(t *testing.T) {
	cases := []struct {
		query, text string
		want        float64
	}{
		{"go", "Go go GO gopher", 4},
		{"Go Lang", "go lang, GO LANG", 2},
		{"aa", "aaaa", 2},
		{"", "anything", 0},
		{"missing", "nothing here", 0},
	}
	for _, tc := range cases {
		if got := (KeywordScorer{}).Score(tc.query, tc.text); got != tc.want {
			t.Errorf("Score(%q, %q) = %v, want %v", tc.query, tc.text, got, tc.want)
		}
	}
}

func TestRank_OrdersByScoreAndKeepsStoreOrderOnTies(t *testing.T) {
	lister := &fakeLister{byOwner: map[uint][]model.Chunk{
		1: chunksOf(1,
			"cat",          // 1
			"dog",          // 0
			"cat cat",      // 2
			"CAT and cat",  // 2
			"Cat",          // 1
			"cat cat cat",  // 3
		),
	}}
	results, err := NewRanker(lister, nil).Rank(context.Background(), 1, "cat", 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	var got []string
	for _, r := range results {
		got = append(got, r.Chunk.Text)
	}
	want := []string{"cat cat cat", "cat cat", "CAT and cat", "cat", "Cat"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Rank = %q, want %q", got, want)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestRank_TopKTruncation(t *testing.T) {
	seven := make([]string, 7)
	for i := range seven {
		seven[i] = fmt.Sprintf("match %d", i)
	}
	lister := &fakeLister{byOwner: map[uint][]model.Chunk{
		1: chunksOf(1, seven...),
		2: chunksOf(2, "match a", "nope", "match b", "match c"),
	}}
	r := NewRanker(lister, KeywordScorer{})

	got, err := r.Texts(context.Background(), 1, "match", 5)
	if err != nil {
		t.Fatalf("Texts failed: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("7 matches with topK=5 returned %d, want 5", len(got))
	}

	got, err = r.Texts(context.Background(), 2, "match", 5)
	if err != nil {
		t.Fatalf("Texts failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("3 matches with topK=5 returned %d, want 3", len(got))
	}
}

func TestRank_EmptyResultsAreNotErrors(t *testing.T) {
	lister := &fakeLister{byOwner: map[uint][]model.Chunk{1: chunksOf(1, "alpha", "beta")}}
	r := NewRanker(lister, nil)

	got, err := r.Rank(context.Background(), 1, "gamma", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("no-match Rank = %v, %v; want empty, nil", got, err)
	}
	got, err = r.Rank(context.Background(), 99, "alpha", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("unknown owner Rank = %v, %v; want empty, nil", got, err)
	}
}

func TestRank_OwnerIsolation(t *testing.T) {
	lister := &fakeLister{byOwner: map[uint][]model.Chunk{
		1: chunksOf(1, "secret of owner one"),
		2: chunksOf(2, "owner two notes"),
	}}
	got, err := NewRanker(lister, nil).Texts(context.Background(), 2, "owner", 5)
	if err != nil {
		t.Fatalf("Texts failed: %v", err)
	}
	if len(got) != 1 || got[0] != "owner two notes" {
		t.Errorf("Texts = %q, want only owner 2's chunk", got)
	}
}

func TestRank_PropagatesListError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewRanker(&fakeLister{err: boom}, nil).Rank(context.Background(), 1, "x", 5)
	if !errors.Is(err, boom) {
		t.Fatalf("Rank error = %v, want %v", err, boom)
	}
}

type lengthScorer struct{}

func (lengthScorer) Score(_, text string) float64 { return float64(len(text)) }

func TestRank_CustomScorer(t *testing.T) {
	lister := &fakeLister{byOwner: map[uint][]model.Chunk{1: chunksOf(1, "bb", "a", "ccc")}}
	got, err := NewRanker(lister, lengthScorer{}).Texts(context.Background(), 1, "ignored", 2)
	if err != nil {
		t.Fatalf("Texts failed: %v", err)
	}
	if strings.Join(got, ",") != "ccc,bb" {
		t.Errorf("Texts = %v, want [ccc bb]", got)
	}
}
