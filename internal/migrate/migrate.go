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

// Package migrate applies remote overrides to whitelisted fields of the
// device configuration store.
package migrate

import (
	"sort"

	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/util/sets"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"in-cloud.io/os-config/internal/configjson"
)

var migrateLog = logf.Log.WithName("migrate")

// Result lists what an override pass did, each list in key order.
type Result struct {
	// Inserted fields were absent from the store.
	Inserted []string
	// Updated fields held a different value.
	Updated []string
	// Unchanged fields already held the override value.
	Unchanged []string
	// Rejected fields are not whitelisted.
	Rejected []string
}

// Changed reports whether the store was modified and must be persisted.
func (r Result) Changed() bool {
	return len(r.Inserted) > 0 || len(r.Updated) > 0
}

// Apply sets every whitelisted override on s. Non-whitelisted keys are
// skipped and never reach the store.
func Apply(whitelist sets.Set[string], overrides map[string]interface{}, s *configjson.Store) Result {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var res Result
	for _, key := range keys {
		value := overrides[key]

		if !whitelist.Has(key) {
			migrateLog.Info("override not whitelisted, skipping", "key", key)
			res.Rejected = append(res.Rejected, key)
			continue
		}

		existing, ok := s.Get(key)
		switch {
		case !ok:
			migrateLog.Info("inserting override", "key", key)
			s.Set(key, value)
			res.Inserted = append(res.Inserted, key)
		case !equality.Semantic.DeepEqual(existing, value):
			migrateLog.Info("updating override", "key", key)
			s.Set(key, value)
			res.Updated = append(res.Updated, key)
		default:
			migrateLog.V(1).Info("override already applied", "key", key)
			res.Unchanged = append(res.Unchanged, key)
		}
	}

	return res
}
