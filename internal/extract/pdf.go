package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates the plain text of every page in page order. A page
// that has no extractable text, or whose content stream cannot be decoded,
// contributes an empty string.
func extractPDF(r io.Reader) (text string, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("empty pdf")
	}

	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("parse pdf failed: %v", rec)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		sb.WriteString(pageText(pdfReader.Page(i)))
	}
	return sb.String(), nil
}

func pageText(p pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	out, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return out
}
