// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package schema prints the suite JSON Schema.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/cyclepoint/internal/commands/shared"
	"github.com/tombee/cyclepoint/schemas"
)

const writePath = "schemas/suite.schema.json"

// NewCommand creates the schema command
func NewCommand() *cobra.Command {
	var (
		outputFormat string
		writeToFile  bool
		force        bool
	)

	cmd := &cobra.Command{
		Use: "schema",
		Annotations: map[string]string{
			"group": "suites",
		},
		Short: "Output the suite JSON Schema",
		Long: `Output the embedded JSON Schema for suite files, for editor completion and
structural checks. Trigger expressions and guards are only checked by
'cyclepoint validate'.

Use --write to save the schema to ./` + writePath + `.`,
		Example: `  # Output schema to stdout
  cyclepoint schema

  # Save schema for editor integration
  cyclepoint schema --write

  # Output schema as YAML
  cyclepoint schema --output yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var schemaObj any
			if err := json.Unmarshal(schemas.GetSuiteSchema(), &schemaObj); err != nil {
				return fmt.Errorf("failed to parse embedded schema: %w", err)
			}

			var (
				output []byte
				err    error
			)
			switch outputFormat {
			case "json":
				output, err = json.MarshalIndent(schemaObj, "", "  ")
				output = append(output, '\n')
			case "yaml":
				output, err = yaml.Marshal(schemaObj)
			default:
				return &shared.ExitError{
					Code:    shared.ExitInvalidSuite,
					Message: fmt.Sprintf("invalid output format: %s (must be 'json' or 'yaml')", outputFormat),
				}
			}
			if err != nil {
				return fmt.Errorf("failed to format schema: %w", err)
			}

			if !writeToFile {
				_, err := cmd.OutOrStdout().Write(output)
				return err
			}

			dest := filepath.FromSlash(writePath)
			if _, err := os.Stat(dest); err == nil && !force {
				return shared.NewExecutionError(fmt.Sprintf("file already exists: %s (use --force to overwrite)", dest), nil)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return shared.NewExecutionError("creating schema directory", err)
			}
			if err := os.WriteFile(dest, output, 0o644); err != nil {
				return shared.NewExecutionError("writing schema", err)
			}
			cmd.Printf("%s wrote %s\n", shared.RenderStatus(true, "OK"), dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "Output format (json or yaml)")
	cmd.Flags().BoolVar(&writeToFile, "write", false, "Write schema to "+writePath)
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing schema file")

	return cmd
}
