// Package metrics counts what a run did. Metrics live on a private registry
// and are exported as a node-exporter textfile at the end of the run.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "llmfill"

// Recorder is safe for concurrent use. A nil *Recorder discards everything.
type Recorder struct {
	reg         *prometheus.Registry
	rows        *prometheus.CounterVec
	generations *prometheus.CounterVec
	extractions *prometheus.CounterVec
	lines       prometheus.Counter
	latency     prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "rows_total",
				Help:      "Input rows by outcome",
			},
			[]string{"pass", "outcome"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "inference",
				Name:      "generations_total",
				Help:      "Generate calls by result",
			},
			[]string{"result"},
		),
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "extractions_total",
				Help:      "Response extractions by outcome",
			},
			[]string{"outcome"},
		),
		lines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "output_lines_total",
				Help:      "Lines written to the output file",
			},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "inference",
				Name:      "generation_duration_seconds",
				Help:      "Duration of generate calls in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
	}
	r.reg.MustRegister(r.rows, r.generations, r.extractions, r.lines, r.latency)
	return r
}

// Registry exposes the private registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) Row(pass, outcome string) {
	if r == nil {
		return
	}
	r.rows.WithLabelValues(pass, outcome).Inc()
}

func (r *Recorder) Extraction(outcome string) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) LineWritten() {
	if r == nil {
		return
	}
	r.lines.Inc()
}

func (r *Recorder) Generation(err error, d time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.generations.WithLabelValues(result).Inc()
	r.latency.Observe(d.Seconds())
}

// WriteTextfile atomically writes every metric in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

// Generator matches the inference call the pipeline makes.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error)
}

type instrumented struct {
	next Generator
	rec  *Recorder
	now  func() time.Time
}

// InstrumentGenerator times and counts every call made through next.
func InstrumentGenerator(next Generator, rec *Recorder) Generator {
	if rec == nil {
		return next
	}
	return &instrumented{next: next, rec: rec, now: time.Now}
}

func (g *instrumented) Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error) {
	start := g.now()
	out, err := g.next.Generate(ctx, model, prompt, options)
	g.rec.Generation(err, g.now().Sub(start))
	return out, err
}
