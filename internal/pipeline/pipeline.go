// Package pipeline drives the row-by-row transformation of an input file
// through the inference service into an output file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/valpere/llmfill/internal/metrics"
	"github.com/valpere/llmfill/internal/ollama"
	"github.com/valpere/llmfill/internal/rowio"
)

// State is the position of a Runner in its lifecycle.
type State int

const (
	Init State = iota
	ServiceCheck
	ModelCheck
	Streaming
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ServiceCheck:
		return "service-check"
	case ModelCheck:
		return "model-check"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Generator issues one completion request.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error)
}

// ServiceChecker confirms the inference service is reachable.
type ServiceChecker interface {
	EnsureRunning(ctx context.Context) error
}

// ModelEnsurer makes a model available locally.
type ModelEnsurer interface {
	EnsureModel(ctx context.Context, model string, onProgress func(ollama.PullProgress)) error
}

// Emit writes one output line made of fields.
type Emit func(fields ...string) error

// Processor turns one input row into zero or more output lines. Returning
// ErrRowSkipped drops the row and keeps going; any other error aborts the run.
type Processor interface {
	Name() string
	Process(ctx context.Context, idx int, row rowio.Row, emit Emit) error
}

// ErrRowSkipped marks a row that was deliberately left out of the output.
var ErrRowSkipped = errors.New("row skipped")

// RowError wraps an unrecoverable failure while handling one row.
type RowError struct {
	Index int // zero-based record index
	Line  int // 1-based line in the input file, 0 if unknown
	Err   error
}

func (e *RowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("unexpected error at row %d (line %d): %v", e.Index, e.Line, e.Err)
	}
	return fmt.Sprintf("unexpected error at row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// IsRowError reports whether err is (or wraps) a RowError.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// Summary describes what a run produced, including runs that aborted.
type Summary struct {
	RowsRead     int
	RowsSkipped  int
	LinesWritten int
	OutputPath   string
}

type Config struct {
	InputPath  string
	OutputPath string
	Delimiter  rune
	Model      string

	Service   ServiceChecker
	Models    ModelEnsurer
	Processor Processor

	// Echo receives a copy of every output line; nil disables it.
	Echo       io.Writer
	OnProgress func(ollama.PullProgress)
	Log        zerolog.Logger
	Metrics    *metrics.Recorder
}

// Runner executes one pass. It is not reusable.
type Runner struct {
	cfg   Config
	state State
}

func New(cfg Config) *Runner {
	return &Runner{cfg: cfg, state: Init}
}

// State returns the current lifecycle state.
func (r *Runner) State() State { return r.state }

func (r *Runner) enter(s State) {
	r.cfg.Log.Debug().Stringer("from", r.state).Stringer("to", s).Msg("pipeline state")
	r.state = s
}

// Run checks the service and model, then streams every input row through
// the processor. Both files are closed on every exit path.
func (r *Runner) Run(ctx context.Context) (sum Summary, err error) {
	sum.OutputPath = r.cfg.OutputPath
	defer func() {
		if err != nil {
			r.enter(Aborted)
		}
	}()

	r.enter(ServiceCheck)
	if err := r.cfg.Service.EnsureRunning(ctx); err != nil {
		return sum, err
	}

	r.enter(ModelCheck)
	if err := r.cfg.Models.EnsureModel(ctx, r.cfg.Model, r.cfg.OnProgress); err != nil {
		return sum, err
	}

	in, err := rowio.Open(r.cfg.InputPath, r.cfg.Delimiter)
	if err != nil {
		return sum, err
	}
	defer in.Close()

	out, err := rowio.Create(r.cfg.OutputPath, r.cfg.Delimiter, r.cfg.Echo)
	if err != nil {
		return sum, err
	}
	defer func() {
		sum.LinesWritten = out.Lines()
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	emit := func(fields ...string) error {
		if err := out.WriteRow(fields...); err != nil {
			return err
		}
		r.cfg.Metrics.LineWritten()
		return nil
	}

	name := r.cfg.Processor.Name()
	r.enter(Streaming)
	for {
		row, idx, err := in.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, &RowError{Index: idx, Err: err}
		}
		sum.RowsRead++

		perr := r.cfg.Processor.Process(ctx, idx, row, emit)
		switch {
		case errors.Is(perr, ErrRowSkipped):
			sum.RowsSkipped++
			r.cfg.Metrics.Row(name, "skipped")
		case perr != nil:
			r.cfg.Metrics.Row(name, "failed")
			return sum, &RowError{Index: idx, Line: in.Line(), Err: perr}
		default:
			r.cfg.Metrics.Row(name, "processed")
		}
	}

	r.enter(Done)
	return sum, nil
}

// Inference binds a generator to one model and its generation options.
type Inference struct {
	Generator Generator
	Model     string
	Options   map[string]any
}

func (i Inference) generate(ctx context.Context, prompt string) (string, error) {
	return i.Generator.Generate(ctx, i.Model, prompt, i.Options)
}
