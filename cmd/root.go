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
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/valpere/llmfill/internal/logging"
)

var version = "0.1.0"

var (
	logLevel  string
	logFormat string

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "llmfill",
	Short: "Batch row augmentation through a local Ollama model",
	Long: `A CLI application that streams the rows of a delimited file through a
locally hosted Ollama model and writes the augmented rows to a new file.

The Ollama service is started in the background when it is not running and
the configured model is pulled before the first row is processed.

Use "llmfill fill --help" to add a generated column to every row.
Use "llmfill pluralize --help" to add plural forms to terminology pairs.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, off)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "Log format (console, json)")
}
