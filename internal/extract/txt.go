package extract

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

func extractTXT(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text failed: %w", err)
	}
	if !utf8.Valid(b) {
		return "", errors.New("text is not valid utf-8")
	}
	return string(b), nil
}
