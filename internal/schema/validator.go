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

package schema

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// ValidUnitSuffixes lists the unit types a service may declare.
var ValidUnitSuffixes = []string{
	".service",
	".timer",
	".socket",
	".mount",
	".target",
	".path",
}

// HasValidUnitSuffix checks if a unit name has a valid suffix.
func HasValidUnitSuffix(name string) bool {
	for _, suffix := range ValidUnitSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ValidateFilePath validates the path of a managed file.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("path cannot contain '..': %s", path)
	}

	if strings.Contains(path, "//") {
		return fmt.Errorf("path cannot contain '//': %s", path)
	}

	return nil
}

// ValidateUnitName validates a systemd unit name.
func ValidateUnitName(name string) error {
	if name == "" {
		return fmt.Errorf("unit name cannot be empty")
	}

	if !HasValidUnitSuffix(name) {
		return fmt.Errorf("unit name must end with a valid suffix (%s): %s",
			strings.Join(ValidUnitSuffixes, ", "), name)
	}

	return nil
}

// ValidateService validates a single service declaration.
func ValidateService(svc osv1alpha1.Service) error {
	for _, name := range svc.FileNames() {
		f := svc.Files[name]
		if err := ValidateFilePath(f.Path); err != nil {
			return fmt.Errorf("files[%s]: %w", name, err)
		}
		if _, _, err := f.FileMode(); err != nil {
			return fmt.Errorf("files[%s]: %w", name, err)
		}
	}

	units := sets.New[string]()
	for i, u := range svc.SystemdServices {
		if err := ValidateUnitName(u); err != nil {
			return fmt.Errorf("systemd_services[%d]: %w", i, err)
		}
		units.Insert(u)
	}

	for _, u := range sets.List(sets.KeySet(svc.SystemdPolicies)) {
		if !units.Has(u) {
			return fmt.Errorf("systemd_policies[%s]: unit is not listed in systemd_services", u)
		}
	}

	return nil
}

// ValidateSchema validates the semantic rules of a decoded schema.
// Returns an error describing the first validation failure found.
func ValidateSchema(s *osv1alpha1.Schema) error {
	if s == nil {
		return fmt.Errorf("schema cannot be nil")
	}

	ids := sets.New[string]()
	for i, svc := range s.Services {
		if ids.Has(svc.ID) {
			return fmt.Errorf("services[%d]: duplicate service id %q", i, svc.ID)
		}
		ids.Insert(svc.ID)

		if err := ValidateService(svc); err != nil {
			return fmt.Errorf("service %q: %w", svc.ID, err)
		}
	}

	return nil
}
