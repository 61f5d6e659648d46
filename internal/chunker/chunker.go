package chunker

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

var ErrInvalidConfiguration = errors.New("invalid chunker configuration")

// Chunker splits text into fixed-size word windows. Adjacent windows share
// overlap words; the last window may be shorter than size. Splitting stops
// at the first window that reaches the end of the text, so no trailing
// window is made only of words the previous one already holds.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a chunker with 500-word windows and a 50-word overlap.
func Default() *Chunker {
	return &Chunker{size: DefaultSize, overlap: DefaultOverlap}
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Seq yields chunk texts lazily. The sequence can be ranged over any number
// of times and always yields the same chunks.
func (c *Chunker) Seq(text string) iter.Seq[string] {
	words := strings.Fields(text)
	step := c.size - c.overlap
	return func(yield func(string) bool) {
		for start := 0; start < len(words); start += step {
			end := min(start+c.size, len(words))
			if !yield(strings.Join(words[start:end], " ")) || end == len(words) {
				return
			}
		}
	}
}

// Split returns every chunk of text. Blank text produces no chunks.
func (c *Chunker) Split(text string) []string {
	chunks := make([]string, 0, c.Count(len(strings.Fields(text))))
	for chunk := range c.Seq(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Count reports how many chunks a text of n words produces.
func (c *Chunker) Count(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= c.size {
		return 1
	}
	step := c.size - c.overlap
	return (n - c.overlap + step - 1) / step
}
