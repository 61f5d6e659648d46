// Package extract turns uploaded documents into plain text.
//
// Each supported file format is served by a Provider; the Registry picks the
// provider for a format and normalizes failures into ErrUnsupportedFormat or
// ErrExtraction so callers never depend on the underlying parser library.
package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtraction        = errors.New("document extraction failed")
)

// Provider extracts plain text from one document format.
type Provider interface {
	Extract(r io.Reader) (string, error)
}

type ProviderFunc func(r io.Reader) (string, error)

func (f ProviderFunc) Extract(r io.Reader) (string, error) { return f(r) }

// ParseFormat normalizes a format tag such as "PDF" or ".docx".
func ParseFormat(tag string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "."))
	switch f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, tag)
}

// FormatFromFilename derives the format tag from a file extension.
func FormatFromFilename(name string) (Format, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return ParseFormat(ext)
}

type Registry struct {
	providers map[Format]Provider
}

// NewRegistry returns a registry wired with the built-in pdf, docx and txt
// providers.
func NewRegistry() *Registry {
	return &Registry{providers: map[Format]Provider{
		FormatPDF:  ProviderFunc(extractPDF),
		FormatDOCX: ProviderFunc(extractDOCX),
		FormatTXT:  ProviderFunc(extractTXT),
	}}
}

// Register replaces the provider for a format.
func (r *Registry) Register(format Format, p Provider) {
	r.providers[format] = p
}

// Formats lists the formats with a registered provider.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.providers))
	for _, f := range []Format{FormatPDF, FormatDOCX, FormatTXT} {
		if _, ok := r.providers[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Extract reads the whole document and returns its text. Parser failures
// are wrapped in ErrExtraction and keep the original cause.
func (r *Registry) Extract(src io.Reader, format Format) (string, error) {
	p, ok := r.providers[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	text, err := p.Extract(src)
	if err != nil {
		if errors.Is(err, ErrExtraction) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrExtraction, format, err)
	}
	return text, nil
}
