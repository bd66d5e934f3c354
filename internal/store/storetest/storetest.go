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

// Package storetest holds behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/cyclepoint/internal/store"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// Factory returns an empty store. The store is closed by Run.
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("prerequisites round trip", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()
		key := store.TaskKey{Point: "2", Name: "model"}

		want := [][]prereq.Record{
			{
				{Point: "2", Name: "prep", Output: "succeeded", State: prereq.SatisfiedNaturally.String()},
				{Point: "1", Name: "model", Output: "succeeded", State: prereq.Unsatisfied.String()},
			},
			{
				{Point: "2", Name: "post", Output: "failed", State: prereq.SatisfiedOverridden.String()},
			},
		}
		require.NoError(t, s.SavePrerequisites(ctx, key, want))

		got, err := s.LoadPrerequisites(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()
		key := store.TaskKey{Point: "1", Name: "post"}

		first := [][]prereq.Record{{{Point: "1", Name: "model", Output: "checkpoint", State: prereq.Unsatisfied.String()}}}
		second := [][]prereq.Record{{{Point: "1", Name: "model", Output: "checkpoint", State: prereq.SatisfiedFromDatabase.String()}}}
		require.NoError(t, s.SavePrerequisites(ctx, key, first))
		require.NoError(t, s.SavePrerequisites(ctx, key, second))

		got, err := s.LoadPrerequisites(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, second, got)
	})

	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		got, err := s.LoadPrerequisites(context.Background(), store.TaskKey{Point: "9", Name: "nope"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("outputs", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		b := trigger.Ref{Point: "2", Name: "model", Output: "succeeded"}
		a := trigger.Ref{Point: "1", Name: "prep", Output: "succeeded"}
		require.NoError(t, s.RecordOutput(ctx, b))
		require.NoError(t, s.RecordOutput(ctx, a))
		require.NoError(t, s.RecordOutput(ctx, a))

		has, err := s.HasOutput(ctx, a)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = s.HasOutput(ctx, trigger.Ref{Point: "1", Name: "prep", Output: "failed"})
		require.NoError(t, err)
		assert.False(t, has)

		refs, err := s.ListOutputs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []trigger.Ref{a, b}, refs)
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()
		key := store.TaskKey{Point: "1", Name: "prep"}

		require.NoError(t, s.RecordOutput(ctx, trigger.Ref{Point: "1", Name: "prep", Output: "started"}))
		require.NoError(t, s.SavePrerequisites(ctx, key, [][]prereq.Record{{{Point: "0", Name: "prep", Output: "succeeded", State: prereq.SatisfiedOverridden.String()}}}))
		require.NoError(t, s.Clear(ctx))

		refs, err := s.ListOutputs(ctx)
		require.NoError(t, err)
		assert.Empty(t, refs)

		got, err := s.LoadPrerequisites(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
