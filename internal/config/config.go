// Package config loads the immutable run configuration shared by the fill
// and pluralize passes.
package config

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/valpere/llmfill/internal/extract"
)

// Variant selects which pass a configuration is validated for.
type Variant int

const (
	Fill Variant = iota
	Pluralize
)

func (v Variant) String() string {
	switch v {
	case Fill:
		return "fill"
	case Pluralize:
		return "pluralize"
	default:
		return "unknown"
	}
}

const (
	DefaultServeCommand   = "ollama"
	DefaultMaxAttempts    = 5
	DefaultPollInterval   = 2 * time.Second
	DefaultRequestTimeout = 5 * time.Minute
)

// RunConfig is loaded once per invocation and never mutated afterwards.
type RunConfig struct {
	Variant   Variant
	Files     FileSettings
	Service   ServiceSettings
	Prompt    PromptSettings
	Languages LanguageSettings
	Bootstrap BootstrapSettings
	Cache     CacheSettings
	Metrics   MetricsSettings
}

type FileSettings struct {
	InputPath  string
	OutputPath string
	Delimiter  rune
}

type ServiceSettings struct {
	Model          string
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// Options is merged verbatim into every generate call.
	Options map[string]any
}

type PromptSettings struct {
	Template      string
	Pattern       string
	StripThinking bool
}

// Extracts reports whether a pattern other than the "none" sentinel is set.
func (p PromptSettings) Extracts() bool {
	return !extract.IsNone(p.Pattern)
}

type LanguageSettings struct {
	Source string
	Target string
}

type BootstrapSettings struct {
	Command      string
	Args         []string
	MaxAttempts  int
	PollInterval time.Duration
}

type CacheSettings struct {
	Path string
}

type MetricsSettings struct {
	Textfile string
}

// NormalizeDelimiter turns the configured delimiter into the single rune used
// for both splitting and joining. The two-character escape `\t` becomes a tab.
func NormalizeDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	switch r {
	case '"', '\r', '\n', utf8.RuneError:
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

// DelimiterString renders a delimiter the way it is written in a config file.
func DelimiterString(r rune) string {
	if r == '\t' {
		return `\t`
	}
	return string(r)
}

// ConfigError reports a missing file, a malformed document or an invalid key.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

var errMissing = errors.New("required key is missing")
