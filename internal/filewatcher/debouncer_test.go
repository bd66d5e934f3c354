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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) get() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestDebouncer_SingleEvent(t *testing.T) {
	var rec recorder
	d := NewDebouncer(50*time.Millisecond, rec.add)
	defer d.Stop()

	d.Add(Event{Path: "/tmp/suite.yaml", Type: EventModified})

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, Event{Path: "/tmp/suite.yaml", Type: EventModified}, rec.get()[0])
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var rec recorder
	d := NewDebouncer(50*time.Millisecond, rec.add)
	defer d.Stop()

	d.Add(Event{Path: "/tmp/suite.yaml", Type: EventCreated})
	time.Sleep(10 * time.Millisecond)
	d.Add(Event{Path: "/tmp/suite.yaml", Type: EventModified})
	time.Sleep(10 * time.Millisecond)
	d.Add(Event{Path: "/tmp/suite.yaml", Type: EventRenamed})

	require.Eventually(t, func() bool { return len(rec.get()) > 0 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	events := rec.get()
	require.Len(t, events, 1)
	assert.Equal(t, EventRenamed, events[0].Type)
}

func TestDebouncer_MultiplePaths(t *testing.T) {
	var rec recorder
	d := NewDebouncer(50*time.Millisecond, rec.add)
	defer d.Stop()

	d.Add(Event{Path: "/tmp/a.yaml", Type: EventModified})
	d.Add(Event{Path: "/tmp/b.yaml", Type: EventModified})
	assert.Equal(t, 2, d.Pending())

	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestDebouncer_StopDiscards(t *testing.T) {
	var rec recorder
	d := NewDebouncer(50*time.Millisecond, rec.add)

	d.Add(Event{Path: "/tmp/a.yaml", Type: EventModified})
	d.Stop()
	d.Stop()
	d.Add(Event{Path: "/tmp/b.yaml", Type: EventModified})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.get())
	assert.Equal(t, 0, d.Pending())
}
