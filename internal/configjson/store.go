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

// Package configjson owns the device configuration store (config.json): the
// only persistent state os-config mutates. It holds provisioning fields, the
// active identity key and the identity key history per endpoint.
package configjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// DefaultPath is where config.json lives on the boot partition.
const DefaultPath = "/mnt/boot/config.json"

// Store is an in-memory copy of config.json. It is read once per
// invocation and written back in full by Save.
type Store struct {
	path   string
	fields map[string]interface{}
}

// New creates a store for path holding fields. A nil map starts empty.
func New(path string, fields map[string]interface{}) *Store {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return &Store{path: path, fields: fields}
}

// Load reads the store at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(path, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fields, err := ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return New(path, fields), nil
}

// ParseObject decodes a JSON object, keeping numbers as json.Number.
func ParseObject(data []byte) (map[string]interface{}, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing content after JSON object")
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return obj, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Save writes the whole store atomically, keeping the permission bits of an
// existing file.
func (s *Store) Save() error {
	data, err := json.Marshal(s.fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", s.path, err)
	}

	if err := renameio.WriteFile(s.path, data, 0644, renameio.WithExistingPermissions()); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// MarshalJSON encodes the store fields.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.fields)
}

// Get returns the raw value of key.
func (s *Store) Get(key string) (interface{}, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Set stores value under key.
func (s *Store) Set(key string, value interface{}) {
	s.fields[key] = value
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	if _, ok := s.fields[key]; !ok {
		return false
	}
	delete(s.fields, key)
	return true
}

// DeleteKeys removes every key present in the store and returns the removed
// keys in ascending order.
func (s *Store) DeleteKeys(keys []string) []string {
	var deleted []string
	for _, k := range keys {
		if s.Delete(k) {
			deleted = append(deleted, k)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// Keys returns the field names in ascending order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key when it is a string.
func (s *Store) String(key string) string {
	v, _ := s.fields[key].(string)
	return v
}

// APIEndpoint returns the current endpoint URL.
func (s *Store) APIEndpoint() string {
	return s.String(osv1alpha1.FieldAPIEndpoint)
}

// DeviceAPIKey returns the identity key of the current endpoint.
func (s *Store) DeviceAPIKey() string {
	return s.String(osv1alpha1.FieldDeviceAPIKey)
}

// DeviceType returns the provisioned device type.
func (s *Store) DeviceType() string {
	return s.String(osv1alpha1.FieldDeviceType)
}

// Managed reports whether the device has joined a fleet.
func (s *Store) Managed() bool {
	return s.APIEndpoint() != ""
}

// RootCA returns the PEM root certificate stored base64 encoded, or nil.
func (s *Store) RootCA() ([]byte, error) {
	enc := s.String(osv1alpha1.FieldRootCA)
	if enc == "" {
		return nil, nil
	}
	pem, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", osv1alpha1.FieldRootCA, err)
	}
	return pem, nil
}
