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

package agent

import (
	"context"
	"time"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

var noopLog = logf.Log.WithName("systemd-noop")

// NoOpSystemdConnection is a no-op implementation of SystemdConnection
// for environments without systemd (containers, CI).
// Every unit looks loaded and stopped.
type NoOpSystemdConnection struct{}

// NewNoOpSystemdConnection creates a new no-op systemd connection.
func NewNoOpSystemdConnection() *NoOpSystemdConnection {
	noopLog.Info("using no-op systemd connection (systemd operations will be skipped)")
	return &NoOpSystemdConnection{}
}

func (n *NoOpSystemdConnection) Close() {}

func (n *NoOpSystemdConnection) GetUnitProperty(_ context.Context, unit, property string) (interface{}, error) {
	noopLog.V(1).Info("no-op: GetUnitProperty", "unit", unit, "property", property)
	switch property {
	case "LoadState":
		return "loaded", nil
	case "ActiveState":
		return "inactive", nil
	}
	return "", nil
}

func (n *NoOpSystemdConnection) StartUnit(_ context.Context, name string) error {
	noopLog.Info("no-op: StartUnit", "unit", name)
	return nil
}

func (n *NoOpSystemdConnection) StopUnit(_ context.Context, name string) error {
	noopLog.Info("no-op: StopUnit", "unit", name)
	return nil
}

func (n *NoOpSystemdConnection) ReloadOrRestartUnit(_ context.Context, name string) error {
	noopLog.Info("no-op: ReloadOrRestartUnit", "unit", name)
	return nil
}

func (n *NoOpSystemdConnection) ScheduleRestart(_ context.Context, name string, delay time.Duration) error {
	noopLog.Info("no-op: ScheduleRestart", "unit", name, "delay", delay.String())
	return nil
}
