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

package shared

// globalFlags holds the root command's persistent flags. The root command
// binds cobra to these fields and every subcommand reads them back through
// the accessors below.
type globalFlags struct {
	verbose bool
	quiet   bool
	json    bool
	config  string
}

// BuildInfo identifies the binary. main stamps it via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	flags globalFlags
	build = BuildInfo{Version: "dev", Commit: "unknown", Date: "unknown"}
)

// RegisterFlagPointers hands the root command the addresses of the
// verbose, quiet, json and config flag values.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &flags.verbose, &flags.quiet, &flags.json, &flags.config
}

func SetVersion(v, c, d string) {
	build = BuildInfo{Version: v, Commit: c, Date: d}
}

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return build.Version, build.Commit, build.Date
}

// Build returns the stamped build information.
func Build() BuildInfo {
	return build
}

func GetVerbose() bool { return flags.verbose }

func GetQuiet() bool { return flags.quiet }

// GetJSON reports whether --json was passed.
func GetJSON() bool { return flags.json }

// GetConfigPath is the --config value, empty for the default location.
func GetConfigPath() string { return flags.config }

func SetJSONForTest(v bool) { flags.json = v }

func SetConfigPathForTest(path string) { flags.config = path }
