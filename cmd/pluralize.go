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
	"github.com/spf13/cobra"

	"github.com/valpere/llmfill/internal/config"
)

var pluralizeConfigPath string

var pluralizeCmd = &cobra.Command{
	Use:   "pluralize [config]",
	Short: "Add plural forms to source/target terminology pairs",
	Long: `Ask the model for the plural of both terms of every pair in the input
file. The singular pair is always written; the plural pair follows it only
when a plural was extracted for both sides. Rows with fewer than two fields
are skipped with a warning.

Template placeholders: {term} and {lang} (or {language}). The first capture
group of regex_pattern is the plural.

The configuration path defaults to config.yaml.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, resolveConfigPath(pluralizeConfigPath, args), config.Pluralize)
	},
}

func init() {
	rootCmd.AddCommand(pluralizeCmd)

	pluralizeCmd.Flags().StringVarP(&pluralizeConfigPath, "config", "c", "", "Configuration file (yaml, json or toml)")
}
