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

import "github.com/santhosh-tekuri/jsonschema/v5"

// Structural schemas of the documents os-config reads. Semantic checks that
// JSON Schema cannot express live in validator.go.
var (
	schemaDocument = jsonschema.MustCompileString("mem://os-config/schema.json", schemaDocumentSrc)
	remoteDocument = jsonschema.MustCompileString("mem://os-config/remote.json", remoteDocumentSrc)
)

// RemoteDocumentSchema returns the compiled structure of the remote
// configuration document.
func RemoteDocumentSchema() *jsonschema.Schema {
	return remoteDocument
}

const schemaDocumentSrc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "services"],
  "properties": {
    "schema_version": {"type": "string"},
    "services": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "files"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "files": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "required": ["path"],
              "properties": {
                "path": {"type": "string", "minLength": 1},
                "perm": {"type": "string"}
              }
            }
          },
          "systemd_services": {"type": "array", "items": {"type": "string"}},
          "systemd_policies": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "properties": {
                "priority": {"type": "integer", "minimum": 0},
                "restart_mode": {"enum": ["immediate", "deferred"]}
              },
              "additionalProperties": false
            }
          }
        }
      }
    },
    "keys": {"type": "array", "items": {"type": "string"}},
    "config": {
      "type": "object",
      "properties": {
        "whitelist": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

const remoteDocumentSrc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "services"],
  "additionalProperties": false,
  "properties": {
    "schema_version": {"type": "string"},
    "services": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {"type": "string"}
      }
    },
    "config": {
      "type": "object",
      "properties": {
        "overrides": {"type": "object"}
      }
    }
  }
}`
