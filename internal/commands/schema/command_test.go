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

package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tombee/cyclepoint/internal/commands/shared"
)

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

func TestSchema_JSON(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "cyclepoint suite", doc["title"])
}

func TestSchema_YAML(t *testing.T) {
	out, err := execute(t, "--output", "yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "properties")
}

func TestSchema_BadFormat(t *testing.T) {
	out, err := execute(t, "--output", "xml")
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidSuite, shared.ExitCode(err))
	assert.NotContains(t, out, "Usage:")
}

func TestSchema_Write(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "--write")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	data, err := os.ReadFile(filepath.Join("schemas", "suite.schema.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	_, err = execute(t, "--write")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "--write", "--force")
	require.NoError(t, err)
}
