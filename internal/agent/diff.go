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
	"fmt"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// ServiceNotFoundError reports a schema service missing from the remote document.
type ServiceNotFoundError struct {
	ServiceID string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service %q not found in remote configuration", e.ServiceID)
}

// ConfigNotFoundError reports a schema file missing from a remote service.
type ConfigNotFoundError struct {
	ServiceID string
	File      string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config %q of service %q not found in remote configuration", e.File, e.ServiceID)
}

// FileChange describes a declared file whose desired contents differ from disk.
type FileChange struct {
	ServiceID string
	File      string
	Path      string
}

// DesiredContents looks up the remote contents of one service file.
func DesiredContents(remote *osv1alpha1.RemoteConfiguration, serviceID, file string) (string, error) {
	files, ok := remote.Services[serviceID]
	if !ok {
		return "", classify(CategoryNotFound, &ServiceNotFoundError{ServiceID: serviceID})
	}
	contents, ok := files[file]
	if !ok {
		return "", classify(CategoryNotFound, &ConfigNotFoundError{ServiceID: serviceID, File: file})
	}
	return contents, nil
}

// HasChanges reports whether any declared file differs from its desired
// contents. It stops at the first difference. Files missing on disk compare
// as empty.
func HasChanges(files FileOperations, schema *osv1alpha1.Schema, remote *osv1alpha1.RemoteConfiguration) (bool, error) {
	changed := false
	err := walkFiles(files, schema, remote, func(FileChange) bool {
		changed = true
		return false
	})
	return changed, err
}

// DiffFiles returns every declared file whose desired contents differ from disk,
// in schema service order and ascending file name.
func DiffFiles(files FileOperations, schema *osv1alpha1.Schema, remote *osv1alpha1.RemoteConfiguration) ([]FileChange, error) {
	var changes []FileChange
	err := walkFiles(files, schema, remote, func(c FileChange) bool {
		changes = append(changes, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// walkFiles calls fn for each changed file until fn returns false.
func walkFiles(files FileOperations, schema *osv1alpha1.Schema, remote *osv1alpha1.RemoteConfiguration, fn func(FileChange) bool) error {
	for _, svc := range schema.Services {
		for _, name := range svc.FileNames() {
			desired, err := DesiredContents(remote, svc.ID, name)
			if err != nil {
				return err
			}
			path := svc.Files[name].Path
			if files.ReadCurrent(path) == desired {
				continue
			}
			if !fn(FileChange{ServiceID: svc.ID, File: name, Path: path}) {
				return nil
			}
		}
	}
	return nil
}
