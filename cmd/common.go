/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/llmfill/internal/bootstrap"
	"github.com/valpere/llmfill/internal/config"
	"github.com/valpere/llmfill/internal/extract"
	"github.com/valpere/llmfill/internal/metrics"
	"github.com/valpere/llmfill/internal/ollama"
	"github.com/valpere/llmfill/internal/pipeline"
	"github.com/valpere/llmfill/internal/prompt"
	"github.com/valpere/llmfill/internal/store"
)

const defaultConfigPath = "config.yaml"

// resolveConfigPath prefers --config, then the positional argument.
func resolveConfigPath(flagValue string, args []string) string {
	if flagValue != "" {
		return flagValue
	}
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return defaultConfigPath
}

// runPass loads the configuration for variant and runs the pipeline once.
func runPass(cmd *cobra.Command, path string, variant config.Variant) error {
	cfg, err := config.Load(path, variant)
	if err != nil {
		return err
	}
	log := logger.With().Str("pass", variant.String()).Logger()

	client := ollama.New(cfg.Service.BaseURL, cfg.Service.ConnectTimeout,
		ollama.WithRequestTimeout(cfg.Service.RequestTimeout),
		ollama.WithLogger(log),
	)
	boot := bootstrap.New(client,
		bootstrap.ExecLauncher{Command: cfg.Bootstrap.Command, Args: cfg.Bootstrap.Args},
		bootstrap.Options{MaxAttempts: cfg.Bootstrap.MaxAttempts, PollInterval: cfg.Bootstrap.PollInterval},
		log,
	)

	rec := metrics.New()
	var gen pipeline.Generator = metrics.InstrumentGenerator(client, rec)
	if cfg.Cache.Path != "" {
		db, err := store.New(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open response cache: %w", err)
		}
		defer db.Close()
		gen = store.NewCachingGenerator(gen, db, log)
	}

	proc, err := buildProcessor(cfg, gen, rec)
	if err != nil {
		return err
	}
	if !cfg.Prompt.Extracts() {
		log.Info().Msg("no extraction pattern, using whole responses")
	}

	runner := pipeline.New(pipeline.Config{
		InputPath:  cfg.Files.InputPath,
		OutputPath: cfg.Files.OutputPath,
		Delimiter:  cfg.Files.Delimiter,
		Model:      cfg.Service.Model,
		Service:    boot,
		Models:     client,
		Processor:  proc,
		Echo:       cmd.OutOrStdout(),
		OnProgress: progressPrinter(cmd.ErrOrStderr()),
		Log:        log,
		Metrics:    rec,
	})

	sum, runErr := runner.Run(cmd.Context())
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("failed to write metrics")
	}
	if runErr != nil {
		log.Error().Stringer("state", runner.State()).Int("rows", sum.RowsRead).Int("lines", sum.LinesWritten).Msg("run aborted")
		return describeFailure(runErr, cfg)
	}

	log.Info().
		Int("rows", sum.RowsRead).
		Int("skipped", sum.RowsSkipped).
		Int("lines", sum.LinesWritten).
		Msg("run complete")
	fmt.Fprintf(cmd.OutOrStdout(), "\nProcess ended. Results saved at: %s\n", sum.OutputPath)
	return nil
}

func buildProcessor(cfg *config.RunConfig, gen pipeline.Generator, rec *metrics.Recorder) (pipeline.Processor, error) {
	tpl, err := prompt.Parse(cfg.Prompt.Template)
	if err != nil {
		return nil, &config.ConfigError{Key: "prompt_settings.prompt_template", Err: err}
	}
	policy := extract.Fallback
	if cfg.Variant == config.Pluralize {
		policy = extract.Strict
	}
	ex, err := extract.New(cfg.Prompt.Pattern, policy, extract.WithStripThinking(cfg.Prompt.StripThinking))
	if err != nil {
		return nil, &config.ConfigError{Key: "prompt_settings.regex_pattern", Err: err}
	}

	inf := pipeline.Inference{Generator: gen, Model: cfg.Service.Model, Options: cfg.Service.Options}
	log := logger.With().Str("pass", cfg.Variant.String()).Logger()
	if cfg.Variant == config.Pluralize {
		langs := pipeline.Languages{Source: cfg.Languages.Source, Target: cfg.Languages.Target}
		return pipeline.NewPluralize(tpl, ex, inf, langs, log, rec), nil
	}
	return pipeline.NewFill(tpl, ex, inf, log, rec), nil
}

// describeFailure adds the context a user needs to tell fatal conditions
// apart. Errors that already say what went wrong pass through.
func describeFailure(err error, cfg *config.RunConfig) error {
	switch {
	case errors.Is(err, bootstrap.ErrServiceUnreachable):
		return fmt.Errorf("cannot reach the Ollama service at %s: %w", cfg.Service.BaseURL, err)
	case ollama.IsModelUnavailable(err):
		return fmt.Errorf("cannot prepare model: %w", err)
	case pipeline.IsRowError(err):
		return fmt.Errorf("processing %s: %w", cfg.Files.InputPath, err)
	default:
		return err
	}
}

// progressPrinter rewrites a single status line on w for each pull event.
func progressPrinter(w io.Writer) func(ollama.PullProgress) {
	width := 0
	return func(p ollama.PullProgress) {
		line := "Status: " + p.Status
		if pct, ok := p.Percent(); ok {
			line = fmt.Sprintf("Status: %s | Progress: %d%%", p.Status, pct)
		}
		pad := ""
		if len(line) < width {
			pad = strings.Repeat(" ", width-len(line))
		}
		width = len(line)
		fmt.Fprintf(w, "\r%s%s", line, pad)
		if p.Status == "success" {
			fmt.Fprintln(w)
			width = 0
		}
	}
}
