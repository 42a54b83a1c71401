/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics records os-config activity. Each invocation is short lived,
// so the registry is exported through a node-exporter textfile rather than an
// HTTP endpoint.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every os-config collector.
var Registry = prometheus.NewRegistry()

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "os_config_commands_total",
			Help: "Total number of os-config command invocations",
		},
		[]string{"command", "result"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "os_config_command_duration_seconds",
			Help:    "Duration of os-config commands in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"command"},
	)

	filesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "os_config_files_written_total",
			Help: "Total number of service configuration files written or removed",
		},
	)

	unitOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "os_config_unit_operations_total",
			Help: "Total number of systemd unit operations issued",
		},
		[]string{"operation"},
	)

	fetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "os_config_fetch_attempts_total",
			Help: "Total number of remote configuration fetch attempts",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		commandsTotal,
		commandDuration,
		filesWrittenTotal,
		unitOperationsTotal,
		fetchAttemptsTotal,
	)
}

func RecordCommand(command, result string, durationSeconds float64) {
	commandsTotal.WithLabelValues(command, result).Inc()
	commandDuration.WithLabelValues(command).Observe(durationSeconds)
}

func RecordFileWritten() {
	filesWrittenTotal.Inc()
}

func RecordUnitOperation(operation string) {
	unitOperationsTotal.WithLabelValues(operation).Inc()
}

func RecordFetchAttempt(result string) {
	fetchAttemptsTotal.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in text exposition format to path.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
