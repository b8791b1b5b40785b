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

var fillConfigPath string

var fillCmd = &cobra.Command{
	Use:   "fill [config]",
	Short: "Append one model-generated column to every row",
	Long: `Render the prompt template for every row of the input file, send it to
the model and append the extracted answer as a new last column.

Template placeholders reference row fields by index: {P[0]}, {P[1]} or {0}.
When regex_pattern is "none" the whole response is used; otherwise the
first capture group is used, falling back to the whole response when the
pattern does not match. A failed generation writes "ERROR: <message>".

The configuration path defaults to config.yaml.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, resolveConfigPath(fillConfigPath, args), config.Fill)
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringVarP(&fillConfigPath, "config", "c", "", "Configuration file (yaml, json or toml)")
}
