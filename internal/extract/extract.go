// Package extract pulls the useful part out of a free-text model response
// with a regular expression whose first capture group is the answer.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/llmfill/internal/postprocess"
)

// None is the pattern value that disables extraction. Matching is
// case-insensitive so the "None" written by older config files works too.
const None = "none"

// IsNone reports whether pattern disables extraction. An empty pattern does too.
func IsNone(pattern string) bool {
	p := strings.TrimSpace(pattern)
	return p == "" || strings.EqualFold(p, None)
}

// Policy decides what a non-matching response yields.
type Policy int

const (
	// Fallback returns the whole cleaned response when the pattern misses.
	Fallback Policy = iota
	// Strict returns no value when the pattern misses or captures nothing.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "fallback"
}

// Outcome describes how a value was obtained.
type Outcome int

const (
	Unfiltered Outcome = iota // no pattern configured
	Matched
	FellBack
	Absent
)

func (o Outcome) String() string {
	switch o {
	case Unfiltered:
		return "unfiltered"
	case Matched:
		return "matched"
	case FellBack:
		return "fallback"
	default:
		return "absent"
	}
}

// Extractor is safe for concurrent use.
type Extractor struct {
	re            *regexp.Regexp
	policy        Policy
	stripThinking bool
}

type Option func(*Extractor)

// WithStripThinking removes <think>-style blocks before matching.
func WithStripThinking(on bool) Option {
	return func(e *Extractor) { e.stripThinking = on }
}

// New compiles pattern. A pattern without a capture group is rejected since
// there would be nothing to extract.
func New(pattern string, policy Policy, opts ...Option) (*Extractor, error) {
	e := &Extractor{policy: policy}
	for _, o := range opts {
		o(e)
	}
	if IsNone(pattern) {
		return e, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, errors.New("pattern has no capture group")
	}
	e.re = re
	return e, nil
}

// Extract returns the answer and whether one is present.
func (e *Extractor) Extract(raw string) (string, bool) {
	v, o := e.Apply(raw)
	return v, o != Absent
}

// Apply is Extract with the detailed outcome.
func (e *Extractor) Apply(raw string) (string, Outcome) {
	text := raw
	if e.stripThinking {
		text = postprocess.StripThinking(text)
	}
	if e.re == nil {
		return postprocess.SingleLine(text), Unfiltered
	}
	if m := e.re.FindStringSubmatch(text); m != nil {
		v := postprocess.SingleLine(m[1])
		if v == "" && e.policy == Strict {
			return "", Absent
		}
		return v, Matched
	}
	if e.policy == Strict {
		return "", Absent
	}
	return postprocess.SingleLine(text), FellBack
}
