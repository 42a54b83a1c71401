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

// Package v1alpha1 contains the documents exchanged by os-config: the locally
// declared schema, the remote desired configuration and the reserved fields of
// the device configuration store.
package v1alpha1

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"k8s.io/utils/ptr"
)

// SchemaVersion is the only schema_version accepted on the schema and the
// remote configuration document.
const SchemaVersion = "1.0.0"

// DefaultPriority is used for a systemd policy without an explicit priority.
const DefaultPriority = 255

// RestartMode controls how a unit is cycled around a configuration write.
type RestartMode string

const (
	// RestartImmediate stops the unit before files are written and
	// reloads-or-restarts it right after.
	RestartImmediate RestartMode = "immediate"
	// RestartDeferred leaves the unit running and schedules a restart
	// through the service manager timer facility.
	RestartDeferred RestartMode = "deferred"
)

// ConfigFile is a file managed on behalf of a service.
type ConfigFile struct {
	// Path is the absolute path of the file on the device.
	Path string `json:"path"`

	// Perm is an octal permission string. Empty leaves permission bits alone.
	// +optional
	Perm string `json:"perm,omitempty"`
}

// FileMode parses Perm, mapping the setuid, setgid and sticky bits onto
// their os.FileMode flags. The boolean is false when Perm is empty.
func (f ConfigFile) FileMode() (os.FileMode, bool, error) {
	if f.Perm == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(f.Perm, 8, 32)
	if err != nil {
		return 0, false, fmt.Errorf("invalid perm %q: %w", f.Perm, err)
	}
	if v > 0o7777 {
		return 0, false, fmt.Errorf("invalid perm %q: out of range", f.Perm)
	}

	mode := os.FileMode(v & 0o777)
	if v&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if v&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if v&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode, true, nil
}

// SystemdPolicy declares how a unit takes part in orchestration.
type SystemdPolicy struct {
	// Priority orders units: lower values are stopped first and restarted last.
	// +optional
	Priority *int `json:"priority,omitempty"`

	// RestartMode defaults to immediate.
	// +optional
	RestartMode RestartMode `json:"restart_mode,omitempty"`
}

// EffectivePriority returns Priority or DefaultPriority when unset.
func (p SystemdPolicy) EffectivePriority() int {
	return ptr.Deref(p.Priority, DefaultPriority)
}

// Mode returns RestartMode, defaulting to RestartImmediate.
func (p SystemdPolicy) Mode() RestartMode {
	if p.RestartMode == "" {
		return RestartImmediate
	}
	return p.RestartMode
}

// Service groups the files and units of one configurable service.
type Service struct {
	// ID matches the service key of the remote configuration document.
	ID string `json:"id"`

	// Files maps a file name to its location on the device.
	Files map[string]ConfigFile `json:"files"`

	// SystemdServices lists the units that consume the files.
	// +optional
	SystemdServices []string `json:"systemd_services,omitempty"`

	// SystemdPolicies holds lifecycle policies keyed by unit name. Units
	// without a policy are not stopped or restarted.
	// +optional
	SystemdPolicies map[string]SystemdPolicy `json:"systemd_policies,omitempty"`
}

// FileNames returns the names of the service files in ascending order.
func (s Service) FileNames() []string {
	names := make([]string, 0, len(s.Files))
	for name := range s.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaConfig holds the settings of the schema that concern the store.
type SchemaConfig struct {
	// Whitelist names the store fields that remote overrides may set.
	// +optional
	Whitelist []string `json:"whitelist,omitempty"`
}

// Schema is the local declaration of managed services, files and keys.
type Schema struct {
	SchemaVersion string `json:"schema_version"`

	Services []Service `json:"services"`

	// Keys are the store fields removed when the device leaves.
	// +optional
	Keys []string `json:"keys,omitempty"`

	// +optional
	Config SchemaConfig `json:"config,omitempty"`
}

// ServiceByID returns the service with the given id.
func (s *Schema) ServiceByID(id string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}
