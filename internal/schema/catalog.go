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

// Package schema loads the local declaration of managed services, files and
// store keys.
package schema

import (
	"fmt"
	"os"

	"k8s.io/apimachinery/pkg/util/sets"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// DefaultPath is where the schema is installed on the device.
const DefaultPath = "/etc/os-config.json"

// Catalog is a loaded and validated schema.
type Catalog struct {
	schema    *osv1alpha1.Schema
	whitelist sets.Set[string]
}

// Load reads and validates the schema at path.
// Failures are configuration errors and are never retried.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	return c, nil
}

// Parse validates and decodes a schema document.
func Parse(data []byte) (*Catalog, error) {
	if _, err := DecodeDocument(data, schemaDocument); err != nil {
		return nil, err
	}

	s := &osv1alpha1.Schema{}
	if err := DecodeInto(data, s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	if err := ValidateSchema(s); err != nil {
		return nil, err
	}

	return &Catalog{
		schema:    s,
		whitelist: sets.New(s.Config.Whitelist...),
	}, nil
}

// Schema returns the decoded schema.
func (c *Catalog) Schema() *osv1alpha1.Schema {
	return c.schema
}

// Services returns the declared services.
func (c *Catalog) Services() []osv1alpha1.Service {
	return c.schema.Services
}

// Keys returns the store fields removed on leave.
func (c *Catalog) Keys() []string {
	return c.schema.Keys
}

// Whitelist returns the store fields eligible for remote overrides.
func (c *Catalog) Whitelist() sets.Set[string] {
	return c.whitelist
}
