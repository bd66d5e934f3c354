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

// Package filewatcher re-runs work when suite files change on disk.
package filewatcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tombee/cyclepoint/internal/log"
)

// DefaultWindow is the debounce window used when none is given.
const DefaultWindow = 200 * time.Millisecond

// Event types.
const (
	EventCreated  = "created"
	EventModified = "modified"
	EventDeleted  = "deleted"
	EventRenamed  = "renamed"
)

// eventTypes maps fsnotify operations to event types, checked in order.
// Chmod is ignored.
var eventTypes = []struct {
	op  fsnotify.Op
	typ string
}{
	{fsnotify.Create, EventCreated},
	{fsnotify.Write, EventModified},
	{fsnotify.Remove, EventDeleted},
	{fsnotify.Rename, EventRenamed},
}

// Event is a settled change to one watched file.
type Event struct {
	Path string
	Type string
}

// Watcher watches a set of files. It watches their parent directories so
// files replaced by editors through rename keep being observed.
type Watcher struct {
	files   map[string]bool
	watcher *fsnotify.Watcher
	window  time.Duration
	logger  *slog.Logger
}

// New watches files. A zero window selects DefaultWindow.
func New(files []string, window time.Duration, logger *slog.Logger) (*Watcher, error) {
	if window == 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = log.Discard()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		files:   make(map[string]bool),
		watcher: fsw,
		window:  window,
		logger:  log.WithComponent(logger, "filewatcher"),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run calls onChange for every settled change to a watched file until ctx
// is cancelled. onChange is called from timer goroutines, one at a time
// per file.
func (w *Watcher) Run(ctx context.Context, onChange func(Event)) error {
	defer w.watcher.Close()

	d := NewDebouncer(w.window, onChange)
	defer d.Stop()

	w.logger.Info("file watcher started", slog.Int("files", len(w.files)))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("file watcher event channel closed")
			}
			if ev, ok := w.translate(event); ok {
				d.Add(ev)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("file watcher error channel closed")
			}
			w.logger.Error("file watcher error", log.Error(err))
		}
	}
}

// translate maps an fsnotify event on a watched file to an Event.
func (w *Watcher) translate(event fsnotify.Event) (Event, bool) {
	if !w.files[filepath.Clean(event.Name)] {
		return Event{}, false
	}
	for _, et := range eventTypes {
		if event.Has(et.op) {
			w.logger.Debug("file event", slog.String("type", et.typ), slog.String("path", event.Name))
			return Event{Path: event.Name, Type: et.typ}, true
		}
	}
	return Event{}, false
}
