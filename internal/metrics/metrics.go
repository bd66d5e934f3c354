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

// Package metrics holds the Prometheus collectors for the task pool and
// trigger engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	outputsMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cyclepoint_outputs_matched_total",
			Help: "Dependencies satisfied by broadcast task outputs",
		},
	)

	satisfyCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cyclepoint_satisfy_calls_total",
			Help: "Output broadcasts offered to prerequisites",
		},
	)

	tasksReady = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cyclepoint_tasks_ready_total",
			Help: "Task instances whose prerequisites were all satisfied",
		},
	)

	tasksSpawned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cyclepoint_tasks_spawned_total",
			Help: "Task instances added to the pool",
		},
	)

	triggerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cyclepoint_trigger_errors_total",
			Help: "Trigger expressions rejected while loading suites, by kind",
		},
		[]string{"kind"},
	)

	persistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cyclepoint_persistence_errors_total",
			Help: "Store operation errors by operation",
		},
		[]string{"operation"},
	)
)

// Trigger error kinds.
const (
	KindMalformed = "malformed"
	KindTrigger   = "trigger"
	KindOther     = "other"
)

// RecordSatisfy counts one broadcast and the dependencies it matched.
func RecordSatisfy(matched int) {
	satisfyCalls.Inc()
	outputsMatched.Add(float64(matched))
}

// RecordReady counts a task instance becoming ready.
func RecordReady() {
	tasksReady.Inc()
}

// RecordSpawn counts a task instance entering the pool.
func RecordSpawn() {
	tasksSpawned.Inc()
}

// RecordTriggerError counts a rejected trigger expression. kind is one of
// KindMalformed, KindTrigger or KindOther.
func RecordTriggerError(kind string) {
	triggerErrors.WithLabelValues(kind).Inc()
}

// RecordPersistenceError counts a failed store operation, e.g.
// "SavePrerequisites" or "RecordOutput".
func RecordPersistenceError(operation string) {
	persistenceErrors.WithLabelValues(operation).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
