// Package prompt fills user prompt templates with conversation context,
// retrieved document chunks and the current question.
//
// Placeholders are written {context}, {docs} and {question}. Doubled braces
// ({{ and }}) produce literal braces. Any other {name} is copied through
// unchanged, and an opening brace without a closing one is an error.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PlaceholderContext  = "context"
	PlaceholderDocs     = "docs"
	PlaceholderQuestion = "question"

	// Separator joins prior context entries and retrieved chunks.
	Separator = "\n"
)

var ErrMalformedTemplate = errors.New("malformed prompt template")

// Input carries the values substituted into a template.
type Input struct {
	PriorContext []string
	Docs         []string
	Question     string
}

func Compose(template string, in Input) (string, error) {
	values := map[string]string{
		PlaceholderContext:  strings.Join(in.PriorContext, Separator),
		PlaceholderDocs:     strings.Join(in.Docs, Separator),
		PlaceholderQuestion: in.Question,
	}
	return render(template, values)
}

// Validate reports whether template would compose without error.
func Validate(template string) error {
	_, err := render(template, nil)
	return err
}

// Placeholders lists the recognized placeholders a template references, in
// first-use order.
func Placeholders(template string) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	err := scan(template, func(literal string) {}, func(name string) {
		if isKnown(name) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func render(template string, values map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(template))
	err := scan(template, func(literal string) {
		sb.WriteString(literal)
	}, func(name string) {
		if v, ok := values[name]; ok {
			sb.WriteString(v)
			return
		}
		sb.WriteString("{" + name + "}")
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func scan(template string, onLiteral func(string), onField func(string)) error {
	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				onLiteral("{")
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return fmt.Errorf("%w: unterminated placeholder at offset %d", ErrMalformedTemplate, i)
			}
			name := template[i+1 : i+1+end]
			if strings.ContainsRune(name, '{') {
				return fmt.Errorf("%w: unterminated placeholder at offset %d", ErrMalformedTemplate, i)
			}
			onField(name)
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				i += 2
			} else {
				i++
			}
			onLiteral("}")
		default:
			next := strings.IndexAny(template[i:], "{}")
			if next < 0 {
				next = len(template) - i
			}
			onLiteral(template[i : i+next])
			i += next
		}
	}
	return nil
}

func isKnown(name string) bool {
	switch name {
	case PlaceholderContext, PlaceholderDocs, PlaceholderQuestion:
		return true
	}
	return false
}
