package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/valpere/llmfill/internal/extract"
	"github.com/valpere/llmfill/internal/metrics"
	"github.com/valpere/llmfill/internal/prompt"
	"github.com/valpere/llmfill/internal/rowio"
)

// Languages names the two sides of a terminology pair as shown to the model.
type Languages struct {
	Source string
	Target string
}

// Pluralize writes each singular pair and, when both sides yield a plural,
// the plural pair underneath it.
type Pluralize struct {
	template  *prompt.Template
	extractor *extract.Extractor
	inference Inference
	languages Languages
	log       zerolog.Logger
	metrics   *metrics.Recorder
}

// NewPluralize expects an extractor built with the Strict policy.
func NewPluralize(tpl *prompt.Template, ex *extract.Extractor, inf Inference, langs Languages, log zerolog.Logger, rec *metrics.Recorder) *Pluralize {
	return &Pluralize{template: tpl, extractor: ex, inference: inf, languages: langs, log: log, metrics: rec}
}

func (p *Pluralize) Name() string { return "pluralize" }

func (p *Pluralize) Process(ctx context.Context, idx int, row rowio.Row, emit Emit) error {
	if len(row) < 2 {
		p.log.Warn().Int("row", idx).Int("fields", len(row)).Msg("row skipped: needs a source and a target term")
		return ErrRowSkipped
	}
	src := strings.TrimSpace(row[0])
	tgt := strings.TrimSpace(row[1])

	srcPlural, srcOK, err := p.plural(ctx, idx, p.languages.Source, src)
	if err != nil {
		return err
	}
	tgtPlural, tgtOK, err := p.plural(ctx, idx, p.languages.Target, tgt)
	if err != nil {
		return err
	}

	if err := emit(src, tgt); err != nil {
		return err
	}
	if srcOK && tgtOK {
		return emit(srcPlural, tgtPlural)
	}
	p.log.Debug().Int("row", idx).Bool("source", srcOK).Bool("target", tgtOK).Msg("no plural pair")
	return nil
}

// plural asks for the plural of one term. Only a rendering failure is an
// error; a failed generation or a miss just means there is no plural.
func (p *Pluralize) plural(ctx context.Context, idx int, language, term string) (string, bool, error) {
	text, err := p.template.Render(prompt.Named{Language: language, Term: term})
	if err != nil {
		return "", false, err
	}
	raw, err := p.inference.generate(ctx, text)
	if err != nil {
		p.log.Warn().Err(err).Int("row", idx).Str("lang", language).Msg("generation failed")
		p.metrics.Extraction(extract.Absent.String())
		return "", false, nil
	}
	v, outcome := p.extractor.Apply(raw)
	p.metrics.Extraction(outcome.String())
	if outcome == extract.Absent || v == "" {
		return "", false, nil
	}
	return v, true, nil
}
