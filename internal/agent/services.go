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
)

// ServiceController is the service manager as seen by the orchestrator.
type ServiceController interface {
	// Start starts a unit.
	Start(ctx context.Context, unit string) error

	// Stop queues a stop job and returns without waiting for it.
	Stop(ctx context.Context, unit string) error

	// ReloadOrRestart queues a reload-or-restart job without waiting for it.
	ReloadOrRestart(ctx context.Context, unit string) error

	// AwaitExit blocks until the unit is inactive or failed.
	AwaitExit(ctx context.Context, unit string) error

	// Exists reports whether the unit is known to the service manager.
	Exists(ctx context.Context, unit string) (bool, error)

	// ScheduleDelayedRestart arranges a restart of the unit after delay
	// and returns immediately.
	ScheduleDelayedRestart(ctx context.Context, unit string, delay time.Duration) error
}
