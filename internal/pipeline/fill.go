package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/valpere/llmfill/internal/extract"
	"github.com/valpere/llmfill/internal/metrics"
	"github.com/valpere/llmfill/internal/postprocess"
	"github.com/valpere/llmfill/internal/prompt"
	"github.com/valpere/llmfill/internal/rowio"
)

// Fill appends one generated column to every row.
type Fill struct {
	template  *prompt.Template
	extractor *extract.Extractor
	inference Inference
	log       zerolog.Logger
	metrics   *metrics.Recorder
}

// NewFill expects an extractor built with the Fallback policy so every row
// gets a non-empty answer whenever the model says anything.
func NewFill(tpl *prompt.Template, ex *extract.Extractor, inf Inference, log zerolog.Logger, rec *metrics.Recorder) *Fill {
	return &Fill{template: tpl, extractor: ex, inference: inf, log: log, metrics: rec}
}

func (f *Fill) Name() string { return "fill" }

// Process renders the prompt from the whole row. A template that references
// a missing field returns the binding error, which ends the run. A failed
// generation does not: its message becomes the answer.
func (f *Fill) Process(ctx context.Context, idx int, row rowio.Row, emit Emit) error {
	text, err := f.template.Render(prompt.Positional(row))
	if err != nil {
		return err
	}

	var answer string
	raw, err := f.inference.generate(ctx, text)
	if err != nil {
		f.log.Warn().Err(err).Int("row", idx).Msg("generation failed, writing error text")
		answer = postprocess.SingleLine("ERROR: " + err.Error())
	} else {
		var outcome extract.Outcome
		answer, outcome = f.extractor.Apply(raw)
		f.metrics.Extraction(outcome.String())
		if outcome == extract.FellBack {
			f.log.Debug().Int("row", idx).Msg("pattern did not match, using whole response")
		}
	}

	fields := make([]string, 0, len(row)+1)
	fields = append(fields, row...)
	if len(row) == 0 {
		// a blank input line still gets its leading delimiter
		fields = append(fields, "")
	}
	fields = append(fields, answer)
	return emit(fields...)
}
