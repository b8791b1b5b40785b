// Package ollama is a small client for the parts of the Ollama HTTP API the
// pipeline needs: a reachability probe, model pull and single-shot generate.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const DefaultBaseURL = "http://localhost:11434"

type Client struct {
	baseURL        string
	connectTimeout time.Duration
	requestTimeout time.Duration
	http           *resty.Client
	log            zerolog.Logger
}

type Option func(*Client)

// WithRequestTimeout bounds a single generate call. Zero means no bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for baseURL. connectTimeout bounds Probe.
func New(baseURL string, connectTimeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		connectTimeout: connectTimeout,
		log:            zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	// No client-wide timeout: a pull can stream for minutes. Every call
	// carries its own deadline through the context instead.
	c.http = resty.New().
		SetLogger(restyLogger{c.log}).
		SetBaseURL(c.baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return c
}

// BaseURL returns the service address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Probe reports whether anything answers HTTP at the base URL within the
// connect timeout. The status code is irrelevant.
func (c *Client) Probe(ctx context.Context) bool {
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		c.log.Debug().Err(err).Str("url", c.baseURL).Msg("probe failed")
		return false
	}
	c.log.Debug().Str("url", c.baseURL).Int("status", resp.StatusCode()).Msg("probe answered")
	return true
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate runs one non-streaming completion and returns the trimmed text.
// Every failure is a *GenerationError; the caller decides whether it is fatal.
func (c *Client) Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{Model: model, Prompt: prompt, Stream: false, Options: options}).
		Post("/api/generate")
	if err != nil {
		return "", &GenerationError{Model: model, Err: err}
	}
	if resp.IsError() {
		return "", &GenerationError{Model: model, Err: fmt.Errorf("status %s: %s", resp.Status(), errorMessage(resp.Body()))}
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &GenerationError{Model: model, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return "", &GenerationError{Model: model, Err: errors.New(out.Error)}
	}
	return strings.TrimSpace(out.Response), nil
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// PullProgress is one event of the model pull stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Percent returns the completion percentage when the total size is known.
func (p PullProgress) Percent() (int, bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return int(p.Completed * 100 / p.Total), true
}

type pullEvent struct {
	PullProgress
	Error string `json:"error,omitempty"`
}

// Pull asks the service to make model available locally and yields its
// progress events as they arrive. Iteration stops after the first error.
// Ranging over the sequence again issues a new pull request.
func (c *Client) Pull(ctx context.Context, model string) iter.Seq2[PullProgress, error] {
	return func(yield func(PullProgress, error) bool) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(pullRequest{Model: model, Stream: true}).
			SetDoNotParseResponse(true).
			Post("/api/pull")
		if err != nil {
			yield(PullProgress{}, err)
			return
		}
		body := resp.RawBody()
		if body == nil {
			yield(PullProgress{}, errors.New("empty pull response"))
			return
		}
		defer body.Close()

		if resp.IsError() {
			b, _ := io.ReadAll(io.LimitReader(body, 4096))
			yield(PullProgress{}, fmt.Errorf("status %s: %s", resp.Status(), errorMessage(b)))
			return
		}

		dec := json.NewDecoder(body)
		for {
			var ev pullEvent
			if err := dec.Decode(&ev); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(PullProgress{}, fmt.Errorf("decode pull progress: %w", err))
				return
			}
			if ev.Error != "" {
				yield(PullProgress{}, errors.New(ev.Error))
				return
			}
			if !yield(ev.PullProgress, nil) {
				return
			}
		}
	}
}

// EnsureModel drains a pull of model, handing each event to onProgress.
// Any failure is reported as a *ModelUnavailableError.
func (c *Client) EnsureModel(ctx context.Context, model string, onProgress func(PullProgress)) error {
	for p, err := range c.Pull(ctx, model) {
		if err != nil {
			return &ModelUnavailableError{Model: model, Err: err}
		}
		c.log.Debug().Str("model", model).Str("status", p.Status).Int64("completed", p.Completed).Int64("total", p.Total).Msg("pull progress")
		if onProgress != nil {
			onProgress(p)
		}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from an Ollama error body, falling
// back to the abbreviated raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:509] + "..."
	}
	return s
}

// restyLogger routes resty's own diagnostics into zerolog at debug level so
// they never interleave with the echoed output lines.
type restyLogger struct{ l zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Debug().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Trace().Msgf(format, v...) }
