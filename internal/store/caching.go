package store

import (
	"context"

	"github.com/rs/zerolog"
)

// Generator matches the inference call the pipeline makes.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error)
}

// CachingGenerator answers from the cache when it can and records every
// successful response from next. Cache failures are logged and never turn
// into generation errors.
type CachingGenerator struct {
	next  Generator
	store *Store
	log   zerolog.Logger
}

func NewCachingGenerator(next Generator, s *Store, log zerolog.Logger) *CachingGenerator {
	return &CachingGenerator{next: next, store: s, log: log}
}

func (g *CachingGenerator) Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error) {
	cached, ok, err := g.store.Lookup(ctx, model, prompt, options)
	if err != nil {
		g.log.Warn().Err(err).Msg("response cache lookup failed")
	} else if ok {
		g.log.Debug().Str("model", model).Msg("response cache hit")
		return cached, nil
	}

	out, err := g.next.Generate(ctx, model, prompt, options)
	if err != nil {
		return "", err
	}
	if err := g.store.Save(ctx, model, prompt, options, out); err != nil {
		g.log.Warn().Err(err).Msg("response cache save failed")
	}
	return out, nil
}
