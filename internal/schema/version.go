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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// VersionMismatchError reports a document whose schema_version is not the
// one this build understands.
type VersionMismatchError struct {
	Expected string
	Actual   string
}

func (e *VersionMismatchError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("missing schema_version, expected %q", e.Expected)
	}
	return fmt.Sprintf("unsupported schema_version %q, expected %q", e.Actual, e.Expected)
}

// DecodeDocument parses a JSON object, checks its schema_version against
// osv1alpha1.SchemaVersion and validates it against the given JSON Schema.
// The generic form is returned so callers can decode it into typed structs.
func DecodeDocument(data []byte, sch *jsonschema.Schema) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := DecodeInto(data, &doc); err != nil {
		return nil, fmt.Errorf("parse JSON object: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse JSON object: document is null")
	}

	actual, _ := doc["schema_version"].(string)
	if actual != osv1alpha1.SchemaVersion {
		return nil, &VersionMismatchError{Expected: osv1alpha1.SchemaVersion, Actual: actual}
	}

	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	return doc, nil
}

// ErrTrailingData is returned when a JSON value is followed by more content.
var ErrTrailingData = errors.New("trailing content after JSON value")

// DecodeInto decodes a single JSON value into v keeping numbers as json.Number.
func DecodeInto(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
