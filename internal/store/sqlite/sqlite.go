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

// Package sqlite provides a SQLite store so an interrupted simulation can
// resume.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/cyclepoint/internal/config"
	"github.com/tombee/cyclepoint/internal/store"
	"github.com/tombee/cyclepoint/pkg/prereq"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

var _ store.Store = (*Store)(nil)

func init() {
	store.Register(config.BackendSQLite, func(cfg config.StoreConfig) (store.Store, error) {
		return New(Config{Path: cfg.Path, WAL: cfg.WAL})
	})
}

// Store is a SQLite store.
type Store struct {
	db *sql.DB
}

// Config contains SQLite connection configuration.
type Config struct {
	// Path is the database file path. Its directory is created if missing.
	Path string

	// WAL enables Write-Ahead Logging mode for concurrent reads.
	WAL bool
}

// New opens (creating if needed) the database at cfg.Path.
func New(cfg Config) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) configurePragmas(ctx context.Context, enableWAL bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS task_prerequisites (
			cycle TEXT NOT NULL,
			name TEXT NOT NULL,
			prereq_index INTEGER NOT NULL,
			position INTEGER NOT NULL,
			prereq_cycle TEXT NOT NULL,
			prereq_name TEXT NOT NULL,
			prereq_output TEXT NOT NULL,
			satisfied TEXT NOT NULL,
			PRIMARY KEY (cycle, name, prereq_index, prereq_cycle, prereq_name, prereq_output)
		)`,
		`CREATE TABLE IF NOT EXISTS task_outputs (
			cycle TEXT NOT NULL,
			name TEXT NOT NULL,
			output TEXT NOT NULL,
			PRIMARY KEY (cycle, name, output)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SavePrerequisites implements store.PrerequisiteStore.
func (s *Store) SavePrerequisites(ctx context.Context, task store.TaskKey, prereqs [][]prereq.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM task_prerequisites WHERE cycle = ? AND name = ?`,
		task.Point, task.Name,
	); err != nil {
		return fmt.Errorf("failed to clear prerequisites of %s: %w", task, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_prerequisites
			(cycle, name, prereq_index, position, prereq_cycle, prereq_name, prereq_output, satisfied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, records := range prereqs {
		for pos, r := range records {
			if _, err := stmt.ExecContext(ctx,
				task.Point, task.Name, i, pos, r.Point, r.Name, r.Output, r.State,
			); err != nil {
				return fmt.Errorf("failed to save prerequisite of %s: %w", task, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prerequisites of %s: %w", task, err)
	}
	return nil
}

// LoadPrerequisites implements store.PrerequisiteStore.
func (s *Store) LoadPrerequisites(ctx context.Context, task store.TaskKey) ([][]prereq.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prereq_index, prereq_cycle, prereq_name, prereq_output, satisfied
		FROM task_prerequisites
		WHERE cycle = ? AND name = ?
		ORDER BY prereq_index, position
	`, task.Point, task.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load prerequisites of %s: %w", task, err)
	}
	defer rows.Close()

	var out [][]prereq.Record
	for rows.Next() {
		var (
			idx int
			r   prereq.Record
		)
		if err := rows.Scan(&idx, &r.Point, &r.Name, &r.Output, &r.State); err != nil {
			return nil, fmt.Errorf("failed to scan prerequisite: %w", err)
		}
		for len(out) <= idx {
			out = append(out, nil)
		}
		out[idx] = append(out[idx], r)
	}
	return out, rows.Err()
}

// RecordOutput implements store.OutputStore.
func (s *Store) RecordOutput(ctx context.Context, ref trigger.Ref) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO task_outputs (cycle, name, output) VALUES (?, ?, ?)`,
		ref.Point, ref.Name, ref.Output,
	)
	if err != nil {
		return fmt.Errorf("failed to record output %s: %w", ref, err)
	}
	return nil
}

// HasOutput implements store.OutputStore.
func (s *Store) HasOutput(ctx context.Context, ref trigger.Ref) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_outputs WHERE cycle = ? AND name = ? AND output = ?`,
		ref.Point, ref.Name, ref.Output,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query output %s: %w", ref, err)
	}
	return n > 0, nil
}

// ListOutputs implements store.OutputStore.
func (s *Store) ListOutputs(ctx context.Context) ([]trigger.Ref, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cycle, name, output FROM task_outputs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer rows.Close()

	var refs []trigger.Ref
	for rows.Next() {
		var r trigger.Ref
		if err := rows.Scan(&r.Point, &r.Name, &r.Output); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	trigger.SortRefs(refs)
	return refs, nil
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"task_prerequisites", "task_outputs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
