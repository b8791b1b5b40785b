// Package prompt renders the literal prompt text sent to the model from a
// user supplied template and the values of one row.
//
// Placeholders use brace syntax. A row is bound positionally with {P[0]} or
// {0}; a single term is bound by name with {lang} and {term}. Doubled braces
// ({{ and }}) produce literal braces.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bindings supplies placeholder values. The only implementations are
// Positional and Named.
type Bindings interface {
	resolve(ph placeholder) (string, error)
}

// Positional binds the fields of a row by zero-based index.
type Positional []string

func (p Positional) resolve(ph placeholder) (string, error) {
	if !ph.indexed {
		return "", &BindingError{Placeholder: ph.raw, Reason: "row fields can only be referenced by index"}
	}
	if ph.index >= len(p) {
		return "", &BindingError{Placeholder: ph.raw, Reason: fmt.Sprintf("index %d out of range for a row of %d fields", ph.index, len(p))}
	}
	return p[ph.index], nil
}

// Named binds one term and the display name of its language.
type Named struct {
	Language string
	Term     string
}

func (n Named) resolve(ph placeholder) (string, error) {
	if ph.indexed {
		return "", &BindingError{Placeholder: ph.raw, Reason: "only {lang} and {term} are available"}
	}
	switch ph.name {
	case "lang", "language":
		return n.Language, nil
	case "term":
		return n.Term, nil
	}
	return "", &BindingError{Placeholder: ph.raw, Reason: "only {lang} and {term} are available"}
}

// BindingError reports a placeholder the bindings cannot satisfy.
type BindingError struct {
	Placeholder string
	Reason      string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("prompt placeholder {%s}: %s", e.Placeholder, e.Reason)
}

// IsBindingError reports whether err is (or wraps) a BindingError.
func IsBindingError(err error) bool {
	var be *BindingError
	return errors.As(err, &be)
}

type placeholder struct {
	raw     string
	name    string
	index   int
	indexed bool
}

type segment struct {
	literal string
	ph      *placeholder
}

// Template is a parsed prompt template. It is immutable and safe to reuse.
type Template struct {
	text string
	segs []segment
}

// Parse splits text into literal runs and placeholders.
func Parse(text string) (*Template, error) {
	t := &Template{text: text}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segs = append(t.segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			ph, err := parsePlaceholder(text[i+1 : i+1+end])
			if err != nil {
				return nil, err
			}
			flush()
			t.segs = append(t.segs, segment{ph: ph})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func parsePlaceholder(body string) (*placeholder, error) {
	name := strings.TrimSpace(body)
	if name == "" {
		return nil, errors.New("empty placeholder {}")
	}
	if strings.ContainsRune(name, '{') {
		return nil, fmt.Errorf("nested brace in placeholder {%s}", body)
	}
	ph := &placeholder{raw: name}

	idx := name
	if strings.HasPrefix(name, "P[") && strings.HasSuffix(name, "]") {
		idx = name[2 : len(name)-1]
	}
	if n, err := strconv.Atoi(idx); err == nil {
		if n < 0 {
			return nil, fmt.Errorf("negative index in placeholder {%s}", body)
		}
		ph.index, ph.indexed = n, true
		return ph, nil
	}
	if idx != name {
		return nil, fmt.Errorf("invalid index in placeholder {%s}", body)
	}
	ph.name = strings.ToLower(name)
	return ph, nil
}

// String returns the template source.
func (t *Template) String() string { return t.text }

// Render fills every placeholder from b.
func (t *Template) Render(b Bindings) (string, error) {
	var sb strings.Builder
	sb.Grow(len(t.text))
	for _, s := range t.segs {
		if s.ph == nil {
			sb.WriteString(s.literal)
			continue
		}
		v, err := b.resolve(*s.ph)
		if err != nil {
			return "", err
		}
		sb.WriteString(v)
	}
	return sb.String(), nil
}

// Render parses text and renders it in one step.
func Render(text string, b Bindings) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}
	return t.Render(b)
}
