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

package configjson

import (
	"errors"
	"fmt"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// ErrMissingAPIEndpoint is returned when a provisioning document has no apiEndpoint.
var ErrMissingAPIEndpoint = errors.New("provisioning document has no apiEndpoint")

// DeviceTypeMismatchError is returned when provisioning would change the
// device type. The device type is immutable once set.
type DeviceTypeMismatchError struct {
	Current  string
	Incoming string
}

func (e *DeviceTypeMismatchError) Error() string {
	return fmt.Sprintf("device type mismatch: device is %q, provisioning document is for %q", e.Current, e.Incoming)
}

// MergeResult describes what a merge did to the identity key.
type MergeResult struct {
	APIEndpoint string
	KeySource   KeySource
}

// Merger merges provisioning documents into a Store.
type Merger struct {
	keys KeyGenerator
}

// NewMerger creates a merger that generates identity keys with gen.
func NewMerger(gen KeyGenerator) *Merger {
	return &Merger{keys: gen}
}

// ParseProvisioning decodes a provisioning document, which must be a JSON object.
func ParseProvisioning(text string) (map[string]interface{}, error) {
	obj, err := ParseObject([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse provisioning document: %w", err)
	}
	return obj, nil
}

// Merge applies incoming onto s:
//  1. a differing device type fails without touching s
//  2. the active key is preserved against the current endpoint
//  3. incoming must carry apiEndpoint
//  4. deviceApiKey is resolved from history or generated for the new endpoint
//  5. every other incoming field overwrites the store field of the same name
//
// Identity key fields of incoming are ignored.
func (m *Merger) Merge(s *Store, incoming map[string]interface{}) (MergeResult, error) {
	if err := checkDeviceType(s, incoming); err != nil {
		return MergeResult{}, err
	}

	ids := NewIdentityKeyStore(s, m.keys)
	ids.Preserve()

	endpoint, _ := incoming[osv1alpha1.FieldAPIEndpoint].(string)
	if endpoint == "" {
		return MergeResult{}, ErrMissingAPIEndpoint
	}

	key, source := ids.ResolveOrGenerate(endpoint)
	s.Set(osv1alpha1.FieldDeviceAPIKey, key)
	keyLog.Info("identity key resolved", "endpoint", StripScheme(endpoint), "source", string(source))

	for k, v := range incoming {
		switch k {
		case osv1alpha1.FieldDeviceAPIKey, osv1alpha1.FieldDeviceAPIKeys:
			keyLog.Info("ignoring identity field of provisioning document", "field", k)
			continue
		}
		s.Set(k, v)
	}

	return MergeResult{APIEndpoint: endpoint, KeySource: source}, nil
}

// checkDeviceType fails when incoming declares a device type other than the
// stored one. Any declared value counts, including the empty string.
func checkDeviceType(s *Store, incoming map[string]interface{}) error {
	v, ok := incoming[osv1alpha1.FieldDeviceType]
	if !ok {
		return nil
	}
	dt, isString := v.(string)
	if !isString {
		return fmt.Errorf("%s must be a string, got %s", osv1alpha1.FieldDeviceType, typeName(v))
	}
	if current := s.DeviceType(); current != "" && dt != current {
		return &DeviceTypeMismatchError{Current: current, Incoming: dt}
	}
	return nil
}
