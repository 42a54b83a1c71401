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
	"strings"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// KeySource tells where an identity key came from.
type KeySource string

const (
	// KeyReused means the key was found in the deviceApiKeys history.
	KeyReused KeySource = "reused"
	// KeyGenerated means a new key was generated.
	KeyGenerated KeySource = "generated"
)

// GenerateOutcome is the result of the generate-identity-key command.
type GenerateOutcome string

const (
	OutcomeUnconfigured     GenerateOutcome = "unconfigured"
	OutcomeAlreadyGenerated GenerateOutcome = "already generated"
	OutcomeReused           GenerateOutcome = "reused"
	OutcomeGenerated        GenerateOutcome = "generated"
)

// StripScheme removes an http:// or https:// prefix. deviceApiKeys is keyed
// by the result so that a scheme change does not lose a key.
func StripScheme(endpoint string) string {
	if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return rest
	}
	return endpoint
}

// IdentityKeyStore manages the per-endpoint identity keys inside a Store.
type IdentityKeyStore struct {
	store *Store
	gen   KeyGenerator
}

// NewIdentityKeyStore wraps s.
func NewIdentityKeyStore(s *Store, gen KeyGenerator) *IdentityKeyStore {
	return &IdentityKeyStore{store: s, gen: gen}
}

// History returns the deviceApiKeys map, creating it when absent.
func (k *IdentityKeyStore) History() map[string]interface{} {
	if m, ok := k.store.fields[osv1alpha1.FieldDeviceAPIKeys].(map[string]interface{}); ok {
		return m
	}
	if v, ok := k.store.fields[osv1alpha1.FieldDeviceAPIKeys]; ok {
		keyLog.Info("replacing malformed key history", "type", typeName(v))
	}
	m := map[string]interface{}{}
	k.store.fields[osv1alpha1.FieldDeviceAPIKeys] = m
	return m
}

// Lookup returns the stored key for endpoint.
func (k *IdentityKeyStore) Lookup(endpoint string) (string, bool) {
	key, ok := k.History()[StripScheme(endpoint)].(string)
	return key, ok && key != ""
}

// Preserve records the active key against the current endpoint so it
// survives an endpoint change.
func (k *IdentityKeyStore) Preserve() {
	history := k.History()

	key := k.store.DeviceAPIKey()
	endpoint := k.store.APIEndpoint()
	if key == "" || endpoint == "" {
		return
	}
	history[StripScheme(endpoint)] = key
	keyLog.V(1).Info("preserved identity key", "endpoint", StripScheme(endpoint))
}

// ResolveOrGenerate returns the stored key for endpoint, or a new one.
func (k *IdentityKeyStore) ResolveOrGenerate(endpoint string) (string, KeySource) {
	if key, ok := k.Lookup(endpoint); ok {
		return key, KeyReused
	}
	return k.gen.NewKey(), KeyGenerated
}

// GenerateIdentityKey sets deviceApiKey for the current endpoint when the
// device is configured and has no key yet. The caller persists the store
// when the outcome is OutcomeReused or OutcomeGenerated.
func (k *IdentityKeyStore) GenerateIdentityKey() GenerateOutcome {
	endpoint := k.store.APIEndpoint()
	if endpoint == "" {
		return OutcomeUnconfigured
	}
	if k.store.DeviceAPIKey() != "" {
		return OutcomeAlreadyGenerated
	}

	key, source := k.ResolveOrGenerate(endpoint)
	k.store.Set(osv1alpha1.FieldDeviceAPIKey, key)
	if source == KeyReused {
		return OutcomeReused
	}
	return OutcomeGenerated
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []interface{}:
		return "array"
	default:
		return "scalar"
	}
}
