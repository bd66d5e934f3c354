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

package main

import (
	"github.com/tombee/cyclepoint/internal/cli"
	"github.com/tombee/cyclepoint/internal/commands/check"
	"github.com/tombee/cyclepoint/internal/commands/completion"
	"github.com/tombee/cyclepoint/internal/commands/schema"
	"github.com/tombee/cyclepoint/internal/commands/simulate"
	"github.com/tombee/cyclepoint/internal/commands/validate"
	versioncmd "github.com/tombee/cyclepoint/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Suite commands
	rootCmd.AddCommand(validate.NewCommand())
	rootCmd.AddCommand(check.NewCommand())
	rootCmd.AddCommand(simulate.NewCommand())
	rootCmd.AddCommand(schema.NewCommand())

	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
