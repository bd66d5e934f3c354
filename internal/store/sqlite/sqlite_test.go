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

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/internal/store"
	"github.com/tombee/cyclepoint/internal/store/storetest"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// createTestStore creates a SQLite store in a temporary directory.
func createTestStore(t *testing.T, path string) *Store {
	t.Helper()

	s, err := New(Config{Path: path, WAL: true})
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return createTestStore(t, filepath.Join(t.TempDir(), "run.db"))
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "run.db")
	key := store.TaskKey{Point: "3", Name: "report"}
	ref := trigger.Ref{Point: "3", Name: "post", Output: "succeeded"}
	records := [][]prereq.Record{{{Point: "3", Name: "post", Output: "succeeded", State: prereq.SatisfiedNaturally.String()}}}

	s := createTestStore(t, path)
	require.NoError(t, s.RecordOutput(ctx, ref))
	require.NoError(t, s.SavePrerequisites(ctx, key, records))
	require.NoError(t, s.Close())

	s = createTestStore(t, path)
	defer s.Close()

	has, err := s.HasOutput(ctx, ref)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.LoadPrerequisites(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestStore_WithoutWAL(t *testing.T) {
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "plain.db")})
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.NotEqual(t, "wal", mode)
}
