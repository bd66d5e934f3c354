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

package filewatcher

import (
	"sync"
	"time"
)

// Debouncer delays delivery of events until no new event for the same
// path has arrived for the window duration, so an editor's burst of
// writes becomes one change.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timers  map[string]*debounceTimer
	onFlush func(Event)
	stopCh  chan struct{}
}

// debounceTimer tracks a pending timer for a specific file path.
type debounceTimer struct {
	timer *time.Timer
	event Event
}

// NewDebouncer creates a debouncer that calls onFlush with the latest
// event of each path once it settles.
func NewDebouncer(window time.Duration, onFlush func(Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		timers:  make(map[string]*debounceTimer),
		onFlush: onFlush,
		stopCh:  make(chan struct{}),
	}
}

// Add records ev, restarting its path's timer.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
	}

	path := ev.Path
	dt, exists := d.timers[path]
	if exists {
		dt.timer.Stop()
		dt.event = ev
	} else {
		dt = &debounceTimer{event: ev}
		d.timers[path] = dt
	}

	dt.timer = time.AfterFunc(d.window, func() {
		d.flush(path)
	})
}

func (d *Debouncer) flush(path string) {
	d.mu.Lock()
	dt, exists := d.timers[path]
	if !exists {
		d.mu.Unlock()
		return
	}
	delete(d.timers, path)
	d.mu.Unlock()

	// onFlush runs outside the lock so it may call Add.
	if d.onFlush != nil {
		d.onFlush(dt.event)
	}
}

// Stop discards pending events. Later calls to Add are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
		close(d.stopCh)
	}

	for path, dt := range d.timers {
		dt.timer.Stop()
		delete(d.timers, path)
	}
}

// Pending returns the number of paths with pending timers.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
