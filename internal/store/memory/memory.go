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

// Package memory provides an in-memory store for runs that need no restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/tombee/cyclepoint/internal/config"
	"github.com/tombee/cyclepoint/internal/store"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

var _ store.Store = (*Store)(nil)

func init() {
	store.Register(config.BackendMemory, func(config.StoreConfig) (store.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory store.
type Store struct {
	mu      sync.RWMutex
	prereqs map[store.TaskKey][][]prereq.Record
	outputs trigger.RefSet
}

// New creates an empty store.
func New() *Store {
	return &Store{
		prereqs: make(map[store.TaskKey][][]prereq.Record),
		outputs: trigger.NewRefSet(),
	}
}

func clone(prereqs [][]prereq.Record) [][]prereq.Record {
	out := make([][]prereq.Record, len(prereqs))
	for i, p := range prereqs {
		out[i] = slices.Clone(p)
	}
	return out
}

// SavePrerequisites implements store.PrerequisiteStore.
func (s *Store) SavePrerequisites(ctx context.Context, task store.TaskKey, prereqs [][]prereq.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prereqs[task] = clone(prereqs)
	return nil
}

// LoadPrerequisites implements store.PrerequisiteStore.
func (s *Store) LoadPrerequisites(ctx context.Context, task store.TaskKey) ([][]prereq.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prereqs[task]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

// RecordOutput implements store.OutputStore.
func (s *Store) RecordOutput(ctx context.Context, ref trigger.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs.Add(ref)
	return nil
}

// HasOutput implements store.OutputStore.
func (s *Store) HasOutput(ctx context.Context, ref trigger.Ref) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs.Has(ref), nil
}

// ListOutputs implements store.OutputStore.
func (s *Store) ListOutputs(ctx context.Context) ([]trigger.Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs.Sorted(), nil
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prereqs = make(map[store.TaskKey][][]prereq.Record)
	s.outputs = trigger.NewRefSet()
	return nil
}

// Close implements io.Closer.
func (s *Store) Close() error {
	return nil
}
