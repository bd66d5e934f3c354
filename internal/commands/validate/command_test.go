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

package validate

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/internal/commands/shared"
)

const validSuite = `name: ok
initial_cycle_point: "1"
final_cycle_point: "2"
graph:
  - dependencies:
      - "prep => model & post"
`

const invalidSuite = `name: broken
initial_cycle_point: "1"
final_cycle_point: "2"
graph:
  - dependencies:
      - "prep & | model => post"
`

func writeSuite(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	shared.SetColor(false)
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	assert.Equal(t, "validate <suite>...", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("watch"))
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestValidate_FailureWritesNoUsage(t *testing.T) {
	dir := t.TempDir()
	broken := writeSuite(t, dir, "broken.yaml", invalidSuite)

	out, err := execute(t, broken)
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL] "+broken)
	assert.NotContains(t, out, "Usage:")
	assert.NotContains(t, out, "Error:")
}

func TestValidate_Valid(t *testing.T) {
	path := writeSuite(t, t.TempDir(), "ok.yaml", validSuite)

	out, err := execute(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] "+path)
	assert.Contains(t, out, "3 tasks, 2 cycle points")
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "ok.yaml", validSuite)
	writeSuite(t, dir, "broken.yaml", invalidSuite)

	out, err := execute(t, filepath.Join(dir, "*.yaml"))
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidSuite, shared.ExitCode(err))
	assert.Contains(t, out, "[FAIL] "+filepath.Join(dir, "broken.yaml"))
	assert.Contains(t, out, "[OK] "+filepath.Join(dir, "ok.yaml"))
	assert.Contains(t, err.Error(), "1 of 2 suite(s) invalid")
}

func TestValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	broken := writeSuite(t, dir, "broken.yaml", invalidSuite)

	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	out, err := execute(t, broken, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	var resp struct {
		Command string        `json:"command"`
		Success bool          `json:"success"`
		Suites  []SuiteResult `json:"suites"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "validate", resp.Command)
	assert.False(t, resp.Success)
	require.Len(t, resp.Suites, 2)
	assert.Equal(t, shared.ErrorCodeInvalidTrigger, resp.Suites[0].Errors[0].Code)
	assert.Equal(t, shared.ErrorCodeFileNotFound, resp.Suites[1].Errors[0].Code)
}
