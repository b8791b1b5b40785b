package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/llmfill/internal/extract"
	"github.com/valpere/llmfill/internal/prompt"
)

// EnvPrefix prefixes environment overrides, e.g. LLMFILL_OLLAMA_SETTINGS_MODEL.
const EnvPrefix = "LLMFILL"

// serviceKeys are the ollama_settings keys consumed by the client itself;
// everything else in that section is a generation option.
var serviceKeys = map[string]bool{
	"model":           true,
	"url":             true,
	"timeout":         true,
	"request_timeout": true,
}

var commonRequired = []string{
	"file_settings.input_filename",
	"file_settings.output_filename",
	"file_settings.delimiter",
	"ollama_settings.model",
	"ollama_settings.url",
	"ollama_settings.timeout",
	"prompt_settings.prompt_template",
	"prompt_settings.regex_pattern",
}

const patternKey = "prompt_settings.regex_pattern"

var languageRequired = []string{
	"language_settings.source_lang_name",
	"language_settings.target_lang_name",
}

// Load reads a configuration file (.yaml, .yml, .json or .toml) and validates
// it for the given variant.
func Load(path string, variant Variant) (*RunConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ConfigError{Err: errors.New("empty config path")}
	}
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("read %s: %w", filepath.Base(path), err)}
	}
	return FromViper(v, variant)
}

// NewViper returns a viper instance with environment overrides and defaults
// installed but no config source attached.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ollama_settings.request_timeout", DefaultRequestTimeout.String())
	v.SetDefault("prompt_settings.strip_thinking", false)
	v.SetDefault("bootstrap_settings.command", DefaultServeCommand)
	v.SetDefault("bootstrap_settings.args", []string{"serve"})
	v.SetDefault("bootstrap_settings.max_attempts", DefaultMaxAttempts)
	v.SetDefault("bootstrap_settings.poll_interval", DefaultPollInterval.String())
	v.SetDefault("cache_settings.path", "")
	v.SetDefault("metrics_settings.textfile", "")
	return v
}

// FromViper builds a RunConfig from an already populated viper instance.
func FromViper(v *viper.Viper, variant Variant) (*RunConfig, error) {
	required := commonRequired
	if variant == Pluralize {
		required = append(append([]string{}, commonRequired...), languageRequired...)
	}
	for _, key := range required {
		if v.IsSet(key) {
			continue
		}
		// regex_pattern written with no value means "no extraction"
		if key == patternKey && presentAsNull(v, key) {
			continue
		}
		return nil, &ConfigError{Key: key, Err: errMissing}
	}

	delim, err := NormalizeDelimiter(v.GetString("file_settings.delimiter"))
	if err != nil {
		return nil, &ConfigError{Key: "file_settings.delimiter", Err: err}
	}

	connect, err := parseDuration(v.Get("ollama_settings.timeout"))
	if err != nil {
		return nil, &ConfigError{Key: "ollama_settings.timeout", Err: err}
	}
	request, err := parseDuration(v.Get("ollama_settings.request_timeout"))
	if err != nil {
		return nil, &ConfigError{Key: "ollama_settings.request_timeout", Err: err}
	}
	poll, err := parseDuration(v.Get("bootstrap_settings.poll_interval"))
	if err != nil {
		return nil, &ConfigError{Key: "bootstrap_settings.poll_interval", Err: err}
	}

	cfg := &RunConfig{
		Variant: variant,
		Files: FileSettings{
			InputPath:  v.GetString("file_settings.input_filename"),
			OutputPath: v.GetString("file_settings.output_filename"),
			Delimiter:  delim,
		},
		Service: ServiceSettings{
			Model:          v.GetString("ollama_settings.model"),
			BaseURL:        strings.TrimRight(v.GetString("ollama_settings.url"), "/"),
			ConnectTimeout: connect,
			RequestTimeout: request,
			Options:        generationOptions(v.GetStringMap("ollama_settings")),
		},
		Prompt: PromptSettings{
			Template:      v.GetString("prompt_settings.prompt_template"),
			Pattern:       pattern(v),
			StripThinking: v.GetBool("prompt_settings.strip_thinking"),
		},
		Languages: LanguageSettings{
			Source: v.GetString("language_settings.source_lang_name"),
			Target: v.GetString("language_settings.target_lang_name"),
		},
		Bootstrap: BootstrapSettings{
			Command:      v.GetString("bootstrap_settings.command"),
			Args:         v.GetStringSlice("bootstrap_settings.args"),
			MaxAttempts:  v.GetInt("bootstrap_settings.max_attempts"),
			PollInterval: poll,
		},
		Cache:   CacheSettings{Path: v.GetString("cache_settings.path")},
		Metrics: MetricsSettings{Textfile: v.GetString("metrics_settings.textfile")},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *RunConfig) validate() error {
	if strings.TrimSpace(c.Files.InputPath) == "" {
		return &ConfigError{Key: "file_settings.input_filename", Err: errMissing}
	}
	if strings.TrimSpace(c.Files.OutputPath) == "" {
		return &ConfigError{Key: "file_settings.output_filename", Err: errMissing}
	}
	if filepath.Clean(c.Files.InputPath) == filepath.Clean(c.Files.OutputPath) {
		return &ConfigError{Key: "file_settings.output_filename", Err: errors.New("input file and output file cannot be the same")}
	}
	if strings.TrimSpace(c.Service.Model) == "" {
		return &ConfigError{Key: "ollama_settings.model", Err: errMissing}
	}
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Key: "ollama_settings.url", Err: fmt.Errorf("invalid base URL %q", c.Service.BaseURL)}
	}

	if c.Variant == Pluralize {
		// The pluralizer only ever binds a language name and a term.
		if _, err := prompt.Render(c.Prompt.Template, prompt.Named{Language: "language", Term: "term"}); err != nil {
			return &ConfigError{Key: "prompt_settings.prompt_template", Err: err}
		}
		if strings.TrimSpace(c.Languages.Source) == "" {
			return &ConfigError{Key: "language_settings.source_lang_name", Err: errMissing}
		}
		if strings.TrimSpace(c.Languages.Target) == "" {
			return &ConfigError{Key: "language_settings.target_lang_name", Err: errMissing}
		}
	} else if _, err := prompt.Parse(c.Prompt.Template); err != nil {
		return &ConfigError{Key: "prompt_settings.prompt_template", Err: err}
	}
	if _, err := extract.New(c.Prompt.Pattern, extract.Fallback); err != nil {
		return &ConfigError{Key: "prompt_settings.regex_pattern", Err: err}
	}

	if c.Bootstrap.MaxAttempts < 1 {
		return &ConfigError{Key: "bootstrap_settings.max_attempts", Err: fmt.Errorf("must be at least 1, got %d", c.Bootstrap.MaxAttempts)}
	}
	if strings.TrimSpace(c.Bootstrap.Command) == "" {
		return &ConfigError{Key: "bootstrap_settings.command", Err: errMissing}
	}
	return nil
}

// presentAsNull reports whether a dotted key is written in the document with
// a null value, which viper treats the same as an absent key.
func presentAsNull(v *viper.Viper, key string) bool {
	section, name, ok := strings.Cut(key, ".")
	if !ok {
		return false
	}
	m := v.GetStringMap(section)
	val, found := m[name]
	return found && val == nil
}

func pattern(v *viper.Viper) string {
	if presentAsNull(v, patternKey) {
		return extract.None
	}
	return v.GetString(patternKey)
}

func generationOptions(section map[string]any) map[string]any {
	opts := make(map[string]any, len(section))
	for k, val := range section {
		if serviceKeys[strings.ToLower(k)] {
			continue
		}
		opts[k] = val
	}
	return opts
}

// parseDuration accepts a bare number of seconds (as the original config
// files use) or a Go duration string such as "1m30s".
func parseDuration(raw any) (time.Duration, error) {
	var d time.Duration
	switch t := raw.(type) {
	case time.Duration:
		d = t
	case int:
		d = time.Duration(t) * time.Second
	case int64:
		d = time.Duration(t) * time.Second
	case float64:
		d = time.Duration(t * float64(time.Second))
	case string:
		s := strings.TrimSpace(t)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			d = time.Duration(secs * float64(time.Second))
		} else if parsed, err := time.ParseDuration(s); err == nil {
			d = parsed
		} else {
			return 0, fmt.Errorf("invalid duration %q", t)
		}
	default:
		return 0, fmt.Errorf("invalid duration %v", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
