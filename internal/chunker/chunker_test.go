package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNew_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{10, 10},
		{10, 11},
		{0, 0},
		{5, -1},
	}
	for _, tc := range cases {
		c, err := New(tc.size, tc.overlap)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("New(%d, %d) error = %v, want ErrInvalidConfiguration", tc.size, tc.overlap, err)
		}
		if c != nil {
			t.Errorf("New(%d, %d) returned a chunker alongside the error", tc.size, tc.overlap)
		}
	}
}

func TestSplit_EmptyText(t *testing.T) {
	c := Default()
	for _, text := range []string{"", "   ", "\n\t "} {
		if got := c.Split(text); len(got) != 0 {
			t.Errorf("Split(%q) = %v, want no chunks", text, got)
		}
	}
}

func TestSplit_Windows(t *testing.T) {
	c, err := New(4, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	got := c.Split(words(10))
	want := []string{
		"w0 w1 w2 w3",
		"w3 w4 w5 w6",
		"w6 w7 w8 w9",
	}
	if len(got) != len(want) {
		t.Fatalf("Split returned %d chunks, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplit_ShortFinalChunk(t *testing.T) {
	c, _ := New(4, 1)
	got := c.Split(words(8))
	if len(got) != 3 {
		t.Fatalf("Split returned %d chunks, want 3: %v", len(got), got)
	}
	if got[2] != "w6 w7" {
		t.Errorf("final chunk = %q, want %q", got[2], "w6 w7")
	}
}

func TestSplit_NormalizesWhitespace(t *testing.T) {
	c, _ := New(3, 0)
	got := c.Split("  alpha\tbeta\n\ngamma   delta ")
	want := []string{"alpha beta gamma", "delta"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Split = %q, want %q", got, want)
	}
}

func TestSplit_ReconstructsWordSequence(t *testing.T) {
	configs := []struct{ size, overlap int }{
		{1, 0}, {2, 1}, {5, 0}, {5, 2}, {7, 6}, {500, 50},
	}
	for _, cfg := range configs {
		c, err := New(cfg.size, cfg.overlap)
		if err != nil {
			t.Fatalf("New(%d, %d) failed: %v", cfg.size, cfg.overlap, err)
		}
		for _, n := range []int{1, 2, 3, 6, 7, 13, 49, 50, 51, 499, 500, 501, 1234} {
			text := words(n)
			chunks := c.Split(text)
			if len(chunks) != c.Count(n) {
				t.Errorf("size=%d overlap=%d n=%d: %d chunks, Count says %d", cfg.size, cfg.overlap, n, len(chunks), c.Count(n))
			}
			var rebuilt []string
			for i, chunk := range chunks {
				ws := strings.Fields(chunk)
				if len(ws) == 0 {
					t.Fatalf("size=%d overlap=%d n=%d: chunk %d is empty", cfg.size, cfg.overlap, n, i)
				}
				if len(ws) > cfg.size {
					t.Fatalf("size=%d overlap=%d n=%d: chunk %d has %d words", cfg.size, cfg.overlap, n, i, len(ws))
				}
				if i < len(chunks)-1 {
					ws = ws[:len(ws)-cfg.overlap]
				}
				rebuilt = append(rebuilt, ws...)
			}
			if strings.Join(rebuilt, " ") != text {
				t.Errorf("size=%d overlap=%d n=%d: reconstruction mismatch", cfg.size, cfg.overlap, n)
			}
		}
	}
}

func TestCount_MatchesFormula(t *testing.T) {
	c, _ := New(500, 50)
	cases := map[int]int{0: 0, 1: 1, 50: 1, 500: 1, 501: 2, 950: 2, 951: 3, 1400: 3}
	for n, want := range cases {
		if got := c.Count(n); got != want {
			t.Errorf("Count(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestSeq_IsRestartableAndStoppable(t *testing.T) {
	c, _ := New(2, 0)
	seq := c.Seq(words(6))

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 3 || second != 3 {
		t.Fatalf("ranges yielded %d and %d chunks, want 3 both times", first, second)
	}

	seen := 0
	for range seq {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("early break yielded %d chunks, want 1", seen)
	}
}
