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

package v1alpha1

// Reserved fields of the device configuration store.
const (
	FieldAPIEndpoint   = "apiEndpoint"
	FieldDeviceAPIKey  = "deviceApiKey"
	FieldDeviceAPIKeys = "deviceApiKeys"
	FieldDeviceType    = "deviceType"
	FieldRootCA        = "rootCA"
)

// ConfigRoute is appended to the API endpoint to locate the remote document.
const ConfigRoute = "/os/v1/config"

// RemoteConfig carries store-level instructions of the remote document.
type RemoteConfig struct {
	// Overrides maps store fields to the values they should hold. Only
	// fields in the schema whitelist are applied.
	// +optional
	Overrides map[string]interface{} `json:"overrides,omitempty"`
}

// RemoteConfiguration is the desired configuration served by the fleet API.
type RemoteConfiguration struct {
	SchemaVersion string `json:"schema_version"`

	// Services maps service id to file name to desired contents.
	Services map[string]map[string]string `json:"services"`

	// +optional
	Config RemoteConfig `json:"config,omitempty"`
}
