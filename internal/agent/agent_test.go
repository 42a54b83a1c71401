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

package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
	"in-cloud.io/os-config/internal/agent"
	"in-cloud.io/os-config/internal/config"
	"in-cloud.io/os-config/internal/configjson"
)

// recordingServices is a ServiceController that records every lifecycle call.
type recordingServices struct {
	mu      sync.Mutex
	present map[string]bool
	calls   []string
}

func newRecordingServices(units ...string) *recordingServices {
	r := &recordingServices{present: map[string]bool{}}
	for _, u := range units {
		r.present[u] = true
	}
	return r
}

func (r *recordingServices) record(op, unit string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+unit)
}

func (r *recordingServices) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingServices) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *recordingServices) Start(_ context.Context, unit string) error {
	r.record("start", unit)
	return nil
}

func (r *recordingServices) Stop(_ context.Context, unit string) error {
	r.record("stop", unit)
	return nil
}

func (r *recordingServices) ReloadOrRestart(_ context.Context, unit string) error {
	r.record("restart", unit)
	return nil
}

func (r *recordingServices) AwaitExit(_ context.Context, unit string) error {
	r.record("await", unit)
	return nil
}

func (r *recordingServices) Exists(_ context.Context, unit string) (bool, error) {
	return r.present[unit], nil
}

func (r *recordingServices) ScheduleDelayedRestart(_ context.Context, unit string, _ time.Duration) error {
	r.record("schedule", unit)
	return nil
}

// fleetAPI serves a mutable remote configuration document.
type fleetAPI struct {
	server *httptest.Server
	hits   atomic.Int32
	mu     sync.Mutex
	doc    string
	status int
}

func newFleetAPI(doc string) *fleetAPI {
	f := &fleetAPI{doc: doc, status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.URL.Path != osv1alpha1.ConfigRoute {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.doc))
	}))
	return f
}

func (f *fleetAPI) Set(doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = doc
}

func (f *fleetAPI) Fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

const testSchemaDoc = `{
  "schema_version": "1.0.0",
  "services": [
    {
      "id": "openvpn",
      "files": {
        "conf": {"path": "/etc/openvpn/openvpn.conf"},
        "ca": {"path": "/etc/openvpn/ca.crt", "perm": "0600"}
      },
      "systemd_services": ["openvpn.service"],
      "systemd_policies": {"openvpn.service": {"priority": 10}}
    },
    {
      "id": "logs",
      "files": {"env": {"path": "/etc/logs/logs.env"}},
      "systemd_services": ["logs.service"],
      "systemd_policies": {"logs.service": {"restart_mode": "deferred"}}
    }
  ],
  "keys": ["apiEndpoint", "deviceApiKey", "deviceType", "logsEndpoint"],
  "config": {"whitelist": ["logsEndpoint"]}
}`

func remoteDoc(vpnConf string, overrides map[string]interface{}) string {
	if overrides == nil {
		overrides = map[string]interface{}{}
	}
	doc := map[string]interface{}{
		"schema_version": "1.0.0",
		"services": map[string]interface{}{
			"openvpn": map[string]string{"conf": vpnConf, "ca": "PEM"},
			"logs":    map[string]string{"env": "LEVEL=info\n"},
		},
		"config": map[string]interface{}{"overrides": overrides},
	}
	data, err := json.Marshal(doc)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

type sequenceKeys struct{ n int }

func (s *sequenceKeys) NewKey() string {
	s.n++
	return fmt.Sprintf("%032x", s.n)
}

var hexKey = regexp.MustCompile(`^[0-9a-f]{32}$`)

var _ = Describe("Agent", func() {
	var (
		ctx        context.Context
		dir        string
		hostRoot   string
		configJSON string
		services   *recordingServices
		api        *fleetAPI
		cfg        agent.Config
	)

	newAgent := func() *agent.Agent {
		a, err := agent.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)
		return a
	}

	readStore := func() map[string]interface{} {
		data, err := os.ReadFile(configJSON)
		Expect(err).NotTo(HaveOccurred())
		fields, err := configjson.ParseObject(data)
		Expect(err).NotTo(HaveOccurred())
		return fields
	}

	writeStore := func(fields map[string]interface{}) {
		data, err := json.Marshal(fields)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.MkdirAll(filepath.Dir(configJSON), 0755)).To(Succeed())
		Expect(os.WriteFile(configJSON, data, 0600)).To(Succeed())
	}

	hostFile := func(path string) string {
		data, err := os.ReadFile(filepath.Join(hostRoot, path))
		if err != nil {
			return ""
		}
		return string(data)
	}

	provisioning := func(extra map[string]interface{}) string {
		doc := map[string]interface{}{"apiEndpoint": api.server.URL}
		for k, v := range extra {
			doc[k] = v
		}
		data, err := json.Marshal(doc)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		hostRoot = filepath.Join(dir, "host")
		configJSON = filepath.Join(dir, "boot", "config.json")

		schemaPath := filepath.Join(dir, "os-config.json")
		Expect(os.WriteFile(schemaPath, []byte(testSchemaDoc), 0644)).To(Succeed())

		services = newRecordingServices("openvpn.service", "logs.service", "supervisor.service")
		api = newFleetAPI(remoteDoc("client\n", nil))
		DeferCleanup(api.server.Close)

		base := config.Default()
		base.SchemaPath = schemaPath
		base.ConfigJSONPath = configJSON
		base.HostRoot = hostRoot
		cfg = agent.Config{
			Config:       base,
			Services:     services,
			KeyGenerator: &sequenceKeys{},
		}
	})

	Context("join", func() {
		It("provisions an empty store with a fresh identity key", func() {
			api.Set(`{"schema_version":"1.0.0","services":{}}`)
			cfg.KeyGenerator = nil
			Expect(os.WriteFile(filepath.Join(dir, "os-config.json"),
				[]byte(`{"schema_version":"1.0.0","services":[]}`), 0644)).To(Succeed())

			Expect(newAgent().Join(ctx, provisioning(nil))).To(Succeed())

			store := readStore()
			Expect(store).To(HaveKeyWithValue("apiEndpoint", api.server.URL))
			Expect(store["deviceApiKey"]).To(MatchRegexp(hexKey.String()))
			Expect(store).To(HaveKeyWithValue("deviceApiKeys", BeEmpty()))
		})

		It("writes every file and brackets the units and the supervisor", func() {
			Expect(newAgent().Join(ctx, provisioning(map[string]interface{}{"deviceType": "raspberrypi4"}))).To(Succeed())

			Expect(hostFile("/etc/openvpn/openvpn.conf")).To(Equal("client\n"))
			Expect(hostFile("/etc/openvpn/ca.crt")).To(Equal("PEM"))
			Expect(hostFile("/etc/logs/logs.env")).To(Equal("LEVEL=info\n"))

			info, err := os.Stat(filepath.Join(hostRoot, "/etc/openvpn/ca.crt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0600)))

			Expect(services.Calls()).To(Equal([]string{
				"stop:supervisor.service",
				"await:supervisor.service",
				"stop:openvpn.service",
				"await:openvpn.service",
				"schedule:logs.service",
				"restart:openvpn.service",
				"start:supervisor.service",
			}))

			store := readStore()
			Expect(store).To(HaveKeyWithValue("deviceType", "raspberrypi4"))
			Expect(store).To(HaveKeyWithValue("deviceApiKey", fmt.Sprintf("%032x", 1)))
		})

		It("applies whitelisted overrides and ignores the rest", func() {
			api.Set(remoteDoc("client\n", map[string]interface{}{
				"logsEndpoint": "https://logs.example",
				"apiEndpoint":  "https://evil.example",
			}))

			Expect(newAgent().Join(ctx, provisioning(nil))).To(Succeed())

			store := readStore()
			Expect(store).To(HaveKeyWithValue("logsEndpoint", "https://logs.example"))
			Expect(store).To(HaveKeyWithValue("apiEndpoint", api.server.URL))
		})

		It("rejects a device type change without touching the store", func() {
			writeStore(map[string]interface{}{"deviceType": "B", "hostname": "dev1"})
			before, err := os.ReadFile(configJSON)
			Expect(err).NotTo(HaveOccurred())

			err = newAgent().Join(ctx, provisioning(map[string]interface{}{"deviceType": "A"}))
			Expect(err).To(HaveOccurred())
			Expect(agent.ExitCode(err)).To(Equal(8))

			var mismatch *configjson.DeviceTypeMismatchError
			Expect(errors.As(err, &mismatch)).To(BeTrue())
			Expect(mismatch.Current).To(Equal("B"))
			Expect(mismatch.Incoming).To(Equal("A"))

			after, err := os.ReadFile(configJSON)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
			Expect(api.hits.Load()).To(BeZero())
			Expect(services.Calls()).To(BeEmpty())
		})

		It("restores the original key when switching back to an endpoint", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			keyA := readStore()["deviceApiKey"]

			other := newFleetAPI(remoteDoc("client\n", nil))
			DeferCleanup(other.server.Close)
			Expect(a.Join(ctx, fmt.Sprintf(`{"apiEndpoint":%q}`, other.server.URL))).To(Succeed())
			Expect(readStore()["deviceApiKey"]).NotTo(Equal(keyA))

			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			Expect(readStore()["deviceApiKey"]).To(Equal(keyA))
		})

		It("fails with the schema exit code when the schema is missing", func() {
			cfg.SchemaPath = filepath.Join(dir, "missing.json")
			err := newAgent().Join(ctx, provisioning(nil))
			Expect(agent.ExitCode(err)).To(Equal(3))
		})
	})

	Context("update", func() {
		It("does nothing on an unmanaged device", func() {
			Expect(newAgent().Update(ctx)).To(Succeed())
			Expect(api.hits.Load()).To(BeZero())
			Expect(services.Calls()).To(BeEmpty())
			_, err := os.Stat(configJSON)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("fails on an unmanaged device when a managed device is required", func() {
			cfg.RequireManaged = true
			err := newAgent().Update(ctx)
			Expect(agent.ExitCode(err)).To(Equal(9))
		})

		It("is idempotent once the device is reconciled", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			services.Reset()

			Expect(a.Update(ctx)).To(Succeed())
			Expect(a.Update(ctx)).To(Succeed())
			Expect(services.Calls()).To(BeEmpty())
		})

		It("applies a changed remote configuration once", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			services.Reset()

			api.Set(remoteDoc("client\nremote vpn.example 1194\n", nil))
			Expect(a.Update(ctx)).To(Succeed())
			Expect(hostFile("/etc/openvpn/openvpn.conf")).To(Equal("client\nremote vpn.example 1194\n"))
			Expect(services.Calls()).To(ContainElement("restart:openvpn.service"))

			services.Reset()
			Expect(a.Update(ctx)).To(Succeed())
			Expect(services.Calls()).To(BeEmpty())
		})

		It("persists overrides even when no file changed", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			services.Reset()

			api.Set(remoteDoc("client\n", map[string]interface{}{"logsEndpoint": "https://logs2.example"}))
			Expect(a.Update(ctx)).To(Succeed())
			Expect(readStore()).To(HaveKeyWithValue("logsEndpoint", "https://logs2.example"))
			Expect(services.Calls()).To(BeEmpty())
		})

		It("does not retry a failed fetch", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			hits := api.hits.Load()

			api.Fail(http.StatusServiceUnavailable)
			err := a.Update(ctx)
			Expect(agent.ExitCode(err)).To(Equal(4))
			Expect(api.hits.Load()).To(Equal(hits + 1))
		})

		It("fails when the remote document lacks a declared service", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())
			services.Reset()

			api.Set(`{"schema_version":"1.0.0","services":{"openvpn":{"conf":"client\n","ca":"PEM"}}}`)
			err := a.Update(ctx)
			Expect(agent.ExitCode(err)).To(Equal(7))
			Expect(services.Calls()).To(BeEmpty())
		})

		It("skips the supervisor when the policy is never", func() {
			cfg.SupervisorPolicy = config.SupervisorNever
			Expect(newAgent().Join(ctx, provisioning(nil))).To(Succeed())
			Expect(services.Calls()).NotTo(ContainElement(HaveSuffix("supervisor.service")))
		})
	})

	Context("diff", func() {
		It("reports changed files without writing", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(nil))).To(Succeed())

			api.Set(remoteDoc("server\n", nil))
			changes, err := a.Diff(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(changes).To(Equal([]agent.FileChange{
				{ServiceID: "openvpn", File: "conf", Path: "/etc/openvpn/openvpn.conf"},
			}))
			Expect(hostFile("/etc/openvpn/openvpn.conf")).To(Equal("client\n"))
		})
	})

	Context("leave", func() {
		It("removes files and schema keys but keeps the key history", func() {
			a := newAgent()
			Expect(a.Join(ctx, provisioning(map[string]interface{}{"hostname": "dev1"}))).To(Succeed())
			key := readStore()["deviceApiKey"]
			services.Reset()

			Expect(a.Leave(ctx)).To(Succeed())

			Expect(hostFile("/etc/openvpn/openvpn.conf")).To(BeEmpty())
			_, err := os.Stat(filepath.Join(hostRoot, "/etc/logs/logs.env"))
			Expect(os.IsNotExist(err)).To(BeTrue())

			store := readStore()
			Expect(store).NotTo(HaveKey("apiEndpoint"))
			Expect(store).NotTo(HaveKey("deviceApiKey"))
			Expect(store).To(HaveKeyWithValue("hostname", "dev1"))
			Expect(store).To(HaveKeyWithValue("deviceApiKeys",
				HaveKeyWithValue(configjson.StripScheme(api.server.URL), key)))
			Expect(services.Calls()).To(ContainElements("stop:openvpn.service", "restart:openvpn.service"))
		})

		It("does nothing on an unmanaged device", func() {
			Expect(newAgent().Leave(ctx)).To(Succeed())
			Expect(services.Calls()).To(BeEmpty())
		})
	})

	Context("generate-identity-key", func() {
		It("reports an unconfigured device", func() {
			outcome, err := newAgent().GenerateIdentityKey(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(configjson.OutcomeUnconfigured))
			_, err = os.Stat(configJSON)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("keeps an existing key", func() {
			writeStore(map[string]interface{}{"apiEndpoint": "https://api.example", "deviceApiKey": "abc"})
			outcome, err := newAgent().GenerateIdentityKey(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(configjson.OutcomeAlreadyGenerated))
			Expect(readStore()).To(HaveKeyWithValue("deviceApiKey", "abc"))
		})

		It("reuses a key from the history", func() {
			writeStore(map[string]interface{}{
				"apiEndpoint":   "https://api.example",
				"deviceApiKeys": map[string]interface{}{"api.example": "old"},
			})
			outcome, err := newAgent().GenerateIdentityKey(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(configjson.OutcomeReused))
			Expect(readStore()).To(HaveKeyWithValue("deviceApiKey", "old"))
		})

		It("generates a new key", func() {
			writeStore(map[string]interface{}{"apiEndpoint": "https://api.example"})
			outcome, err := newAgent().GenerateIdentityKey(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(configjson.OutcomeGenerated))
			Expect(readStore()).To(HaveKeyWithValue("deviceApiKey", fmt.Sprintf("%032x", 1)))
		})
	})
})
