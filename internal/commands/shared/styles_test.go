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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_Plain(t *testing.T) {
	SetColor(false)
	assert.Equal(t, "[OK] ", RenderStatus(true, "OK")+" ")
	assert.Equal(t, SymbolError+" failed", RenderError("failed"))
	assert.Equal(t, "label", RenderLabel("label"))
}

func TestIsTTY_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, IsTTY())
}
