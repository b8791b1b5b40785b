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
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/valpere/llmfill/internal/config"
)

var (
	showConfigPath string
	showVariant    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration files",
}

var configShowCmd = &cobra.Command{
	Use:   "show [config]",
	Short: "Validate a configuration and print its effective values",
	Long: `Load a configuration the way fill or pluralize would, including defaults
and LLMFILL_* environment overrides, and print the result as YAML.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		variant, err := parseVariant(showVariant)
		if err != nil {
			return err
		}
		cfg, err := config.Load(resolveConfigPath(showConfigPath, args), variant)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(effectiveConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func parseVariant(s string) (config.Variant, error) {
	switch s {
	case "fill":
		return config.Fill, nil
	case "pluralize":
		return config.Pluralize, nil
	default:
		return 0, fmt.Errorf("unknown variant %q (want fill or pluralize)", s)
	}
}

type effectiveFiles struct {
	Input     string `yaml:"input_filename"`
	Output    string `yaml:"output_filename"`
	Delimiter string `yaml:"delimiter"`
}

type effectivePrompt struct {
	Template      string `yaml:"prompt_template"`
	Pattern       string `yaml:"regex_pattern"`
	StripThinking bool   `yaml:"strip_thinking"`
}

type effectiveLanguages struct {
	Source string `yaml:"source_lang_name"`
	Target string `yaml:"target_lang_name"`
}

type effectiveBootstrap struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	MaxAttempts  int      `yaml:"max_attempts"`
	PollInterval string   `yaml:"poll_interval"`
}

type effective struct {
	Variant   string              `yaml:"variant"`
	Files     effectiveFiles      `yaml:"file_settings"`
	Ollama    map[string]any      `yaml:"ollama_settings"`
	Prompt    effectivePrompt     `yaml:"prompt_settings"`
	Languages *effectiveLanguages `yaml:"language_settings,omitempty"`
	Bootstrap effectiveBootstrap  `yaml:"bootstrap_settings"`
	Cache     map[string]string   `yaml:"cache_settings,omitempty"`
	Metrics   map[string]string   `yaml:"metrics_settings,omitempty"`
}

// effectiveConfig mirrors the file layout so the output can be fed back in.
func effectiveConfig(cfg *config.RunConfig) effective {
	ollama := map[string]any{
		"model":           cfg.Service.Model,
		"url":             cfg.Service.BaseURL,
		"timeout":         cfg.Service.ConnectTimeout.String(),
		"request_timeout": cfg.Service.RequestTimeout.String(),
	}
	for k, v := range cfg.Service.Options {
		ollama[k] = v
	}

	e := effective{
		Variant: cfg.Variant.String(),
		Files: effectiveFiles{
			Input:     cfg.Files.InputPath,
			Output:    cfg.Files.OutputPath,
			Delimiter: config.DelimiterString(cfg.Files.Delimiter),
		},
		Ollama: ollama,
		Prompt: effectivePrompt{
			Template:      cfg.Prompt.Template,
			Pattern:       cfg.Prompt.Pattern,
			StripThinking: cfg.Prompt.StripThinking,
		},
		Bootstrap: effectiveBootstrap{
			Command:      cfg.Bootstrap.Command,
			Args:         cfg.Bootstrap.Args,
			MaxAttempts:  cfg.Bootstrap.MaxAttempts,
			PollInterval: cfg.Bootstrap.PollInterval.String(),
		},
	}
	if cfg.Variant == config.Pluralize {
		e.Languages = &effectiveLanguages{Source: cfg.Languages.Source, Target: cfg.Languages.Target}
	}
	if cfg.Cache.Path != "" {
		e.Cache = map[string]string{"path": cfg.Cache.Path}
	}
	if cfg.Metrics.Textfile != "" {
		e.Metrics = map[string]string{"textfile": cfg.Metrics.Textfile}
	}
	return e
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&showConfigPath, "config", "c", "", "Configuration file (yaml, json or toml)")
	configShowCmd.Flags().StringVar(&showVariant, "variant", "fill", "Validate for this pass (fill, pluralize)")
}
