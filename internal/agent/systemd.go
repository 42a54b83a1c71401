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
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"in-cloud.io/os-config/internal/metrics"
)

var systemdLog = logf.Log.WithName("systemd")

// Defaults for AwaitExit.
const (
	DefaultAwaitInterval = time.Second
	DefaultAwaitAttempts = 90
)

// ErrAwaitTimeout is returned when a unit does not reach a stopped state.
var ErrAwaitTimeout = errors.New("timed out waiting for unit to exit")

// SystemdConnection abstracts the systemd D-Bus connection for testing.
type SystemdConnection interface {
	// Close closes the connection.
	Close()

	// GetUnitProperty gets a property of a unit.
	GetUnitProperty(ctx context.Context, unit, property string) (interface{}, error)

	// StartUnit starts a unit and waits for the job to finish.
	StartUnit(ctx context.Context, name string) error

	// StopUnit queues a stop job for a unit.
	StopUnit(ctx context.Context, name string) error

	// ReloadOrRestartUnit queues a reload-or-restart job for a unit.
	ReloadOrRestartUnit(ctx context.Context, name string) error

	// ScheduleRestart restarts a unit once delay has elapsed.
	ScheduleRestart(ctx context.Context, name string, delay time.Duration) error
}

var _ ServiceController = (*ServiceManager)(nil)

// ServiceManager implements ServiceController on top of a SystemdConnection.
type ServiceManager struct {
	conn          SystemdConnection
	awaitInterval time.Duration
	awaitAttempts int
}

// NewServiceManager creates a service manager with the default await policy.
func NewServiceManager(conn SystemdConnection) *ServiceManager {
	return &ServiceManager{
		conn:          conn,
		awaitInterval: DefaultAwaitInterval,
		awaitAttempts: DefaultAwaitAttempts,
	}
}

// WithAwaitPolicy overrides how often and how long AwaitExit polls.
func (m *ServiceManager) WithAwaitPolicy(interval time.Duration, attempts int) *ServiceManager {
	m.awaitInterval = interval
	m.awaitAttempts = attempts
	return m
}

// Close closes the underlying connection.
func (m *ServiceManager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

func (m *ServiceManager) Start(ctx context.Context, unit string) error {
	systemdLog.V(1).Info("starting unit", "unit", unit)
	metrics.RecordUnitOperation("start")
	return m.conn.StartUnit(ctx, unit)
}

func (m *ServiceManager) Stop(ctx context.Context, unit string) error {
	systemdLog.V(1).Info("stopping unit", "unit", unit)
	metrics.RecordUnitOperation("stop")
	return m.conn.StopUnit(ctx, unit)
}

func (m *ServiceManager) ReloadOrRestart(ctx context.Context, unit string) error {
	systemdLog.V(1).Info("reloading or restarting unit", "unit", unit)
	metrics.RecordUnitOperation("reload-or-restart")
	return m.conn.ReloadOrRestartUnit(ctx, unit)
}

func (m *ServiceManager) ScheduleDelayedRestart(ctx context.Context, unit string, delay time.Duration) error {
	systemdLog.V(1).Info("scheduling restart", "unit", unit, "delay", delay.String())
	metrics.RecordUnitOperation("schedule-restart")
	return m.conn.ScheduleRestart(ctx, unit, delay)
}

// Exists reports whether systemd has the unit loaded.
func (m *ServiceManager) Exists(ctx context.Context, unit string) (bool, error) {
	state, err := m.getStringProperty(ctx, unit, "LoadState")
	if err != nil {
		return false, fmt.Errorf("probe unit %s: %w", unit, err)
	}
	return state == "loaded", nil
}

// AwaitExit polls ActiveState until the unit is inactive or failed.
func (m *ServiceManager) AwaitExit(ctx context.Context, unit string) error {
	backoff := wait.Backoff{
		Duration: m.awaitInterval,
		Factor:   1.0,
		Steps:    m.awaitAttempts,
	}

	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		state, err := m.getStringProperty(ctx, unit, "ActiveState")
		if err != nil {
			return false, err
		}
		systemdLog.V(1).Info("waiting for unit to exit", "unit", unit, "state", state)
		return state == "inactive" || state == "failed", nil
	})
	if err != nil {
		if ctx.Err() == nil && wait.Interrupted(err) {
			return fmt.Errorf("%w: %s", ErrAwaitTimeout, unit)
		}
		return fmt.Errorf("await %s: %w", unit, err)
	}
	return nil
}

func (m *ServiceManager) getStringProperty(ctx context.Context, unit, property string) (string, error) {
	val, err := m.conn.GetUnitProperty(ctx, unit, property)
	if err != nil {
		return "", err
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", nil
}
