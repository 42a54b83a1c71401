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
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-logr/logr"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
	"in-cloud.io/os-config/internal/metrics"
)

// DeferredRestartDelay is how long a deferred-mode unit waits before restarting.
const DeferredRestartDelay = 10 * time.Second

// PlanEntry is one lifecycle-managed unit.
type PlanEntry struct {
	Unit     string
	Priority int
	Mode     osv1alpha1.RestartMode
}

// Plan is sorted by ascending priority, then unit name.
type Plan []PlanEntry

// Units returns the unit names in plan order.
func (p Plan) Units() []string {
	units := make([]string, 0, len(p))
	for _, e := range p {
		units = append(units, e.Unit)
	}
	return units
}

// ApplyResult contains the result of a full apply or remove operation.
type ApplyResult struct {
	FilesWritten   int
	FilesSkipped   int
	FilesRemoved   int
	UnitsStopped   int
	UnitsRestarted int
	UnitsScheduled int
}

// Orchestrator applies service configuration files bracketed by unit
// stops and restarts. Units are stopped in ascending priority and restarted
// in descending priority. On any error it stops immediately; nothing is
// rolled back.
type Orchestrator struct {
	files        FileOperations
	services     ServiceController
	restartDelay time.Duration
	log          logr.Logger
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(files FileOperations, services ServiceController) *Orchestrator {
	return &Orchestrator{
		files:        files,
		services:     services,
		restartDelay: DeferredRestartDelay,
		log:          logf.Log.WithName("orchestrator"),
	}
}

// BuildPlan collects every unit that has a policy and exists on the device.
// A unit listed under several services keeps the policy seen last.
func (o *Orchestrator) BuildPlan(ctx context.Context, schema *osv1alpha1.Schema) (Plan, error) {
	entries := make(map[string]PlanEntry)
	var order []string

	for _, svc := range schema.Services {
		for _, unit := range svc.SystemdServices {
			policy, ok := svc.SystemdPolicies[unit]
			if !ok {
				continue
			}
			if _, seen := entries[unit]; !seen {
				order = append(order, unit)
			}
			entries[unit] = PlanEntry{
				Unit:     unit,
				Priority: policy.EffectivePriority(),
				Mode:     policy.Mode(),
			}
		}
	}

	plan := make(Plan, 0, len(order))
	for _, unit := range order {
		exists, err := o.services.Exists(ctx, unit)
		if err != nil {
			return nil, classify(CategoryService, err)
		}
		if !exists {
			o.log.V(1).Info("unit not present, skipping", "unit", unit)
			continue
		}
		plan = append(plan, entries[unit])
	}

	sort.SliceStable(plan, func(i, j int) bool {
		if plan[i].Priority != plan[j].Priority {
			return plan[i].Priority < plan[j].Priority
		}
		return plan[i].Unit < plan[j].Unit
	})
	return plan, nil
}

type fileWrite struct {
	serviceID string
	name      string
	path      string
	content   string
	mode      *os.FileMode
}

// Apply writes every declared file with its desired contents.
func (o *Orchestrator) Apply(ctx context.Context, schema *osv1alpha1.Schema, remote *osv1alpha1.RemoteConfiguration) (*ApplyResult, error) {
	// Resolve everything up front so a lookup failure leaves units running.
	var writes []fileWrite
	for _, svc := range schema.Services {
		for _, name := range svc.FileNames() {
			content, err := DesiredContents(remote, svc.ID, name)
			if err != nil {
				return nil, err
			}
			cf := svc.Files[name]
			mode, ok, err := cf.FileMode()
			if err != nil {
				return nil, classify(CategorySchema, fmt.Errorf("service %s file %s: %w", svc.ID, name, err))
			}
			w := fileWrite{serviceID: svc.ID, name: name, path: cf.Path, content: content}
			if ok {
				w.mode = &mode
			}
			writes = append(writes, w)
		}
	}

	result := &ApplyResult{}
	err := o.bracket(ctx, schema, result, func() error {
		for _, w := range writes {
			if err := ctx.Err(); err != nil {
				return err
			}
			applied, err := o.files.Write(w.path, w.content, w.mode)
			if err != nil {
				return classify(CategoryWrite, fmt.Errorf("service %s file %s: %w", w.serviceID, w.name, err))
			}
			if applied {
				result.FilesWritten++
				metrics.RecordFileWritten()
				o.log.Info("wrote config file", "service", w.serviceID, "file", w.name, "path", w.path)
			} else {
				result.FilesSkipped++
				o.log.V(1).Info("config file up to date", "service", w.serviceID, "file", w.name, "path", w.path)
			}
		}
		return nil
	})
	return result, err
}

// Remove deletes every declared file.
func (o *Orchestrator) Remove(ctx context.Context, schema *osv1alpha1.Schema) (*ApplyResult, error) {
	result := &ApplyResult{}
	err := o.bracket(ctx, schema, result, func() error {
		for _, svc := range schema.Services {
			for _, name := range svc.FileNames() {
				if err := ctx.Err(); err != nil {
					return err
				}
				path := svc.Files[name].Path
				removed, err := o.files.Remove(path)
				if err != nil {
					return classify(CategoryWrite, fmt.Errorf("service %s file %s: %w", svc.ID, name, err))
				}
				if removed {
					result.FilesRemoved++
					metrics.RecordFileWritten()
					o.log.Info("removed config file", "service", svc.ID, "file", name, "path", path)
				}
			}
		}
		return nil
	})
	return result, err
}

// bracket stops immediate-mode units, runs fn, then restarts or schedules
// every planned unit in reverse order.
func (o *Orchestrator) bracket(ctx context.Context, schema *osv1alpha1.Schema, result *ApplyResult, fn func() error) error {
	plan, err := o.BuildPlan(ctx, schema)
	if err != nil {
		return err
	}
	if len(plan) > 0 {
		o.log.V(1).Info("built restart plan", "units", plan.Units())
	}

	// All stops are queued before any await so systemd runs them together.
	for _, e := range plan {
		if e.Mode != osv1alpha1.RestartImmediate {
			continue
		}
		if err := o.services.Stop(ctx, e.Unit); err != nil {
			return classify(CategoryService, fmt.Errorf("stop %s: %w", e.Unit, err))
		}
		result.UnitsStopped++
	}
	for _, e := range plan {
		if e.Mode != osv1alpha1.RestartImmediate {
			continue
		}
		if err := o.services.AwaitExit(ctx, e.Unit); err != nil {
			return classify(CategoryService, err)
		}
		o.log.V(1).Info("unit stopped", "unit", e.Unit)
	}

	if err := fn(); err != nil {
		return classify(CategoryWrite, err)
	}

	for i := len(plan) - 1; i >= 0; i-- {
		e := plan[i]
		switch e.Mode {
		case osv1alpha1.RestartDeferred:
			if err := o.services.ScheduleDelayedRestart(ctx, e.Unit, o.restartDelay); err != nil {
				return classify(CategoryService, fmt.Errorf("schedule restart %s: %w", e.Unit, err))
			}
			result.UnitsScheduled++
			o.log.Info("scheduled unit restart", "unit", e.Unit, "delay", o.restartDelay.String())
		default:
			if err := o.services.ReloadOrRestart(ctx, e.Unit); err != nil {
				return classify(CategoryService, fmt.Errorf("restart %s: %w", e.Unit, err))
			}
			result.UnitsRestarted++
			o.log.Info("restarted unit", "unit", e.Unit)
		}
	}
	return nil
}
