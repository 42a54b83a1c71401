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
	"context"
	"fmt"
	"time"

	logf "sigs.k8s.io/controller-runtime/pkg/log"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
	"in-cloud.io/os-config/internal/config"
	"in-cloud.io/os-config/internal/configjson"
	"in-cloud.io/os-config/internal/metrics"
	"in-cloud.io/os-config/internal/migrate"
	"in-cloud.io/os-config/internal/remote"
	"in-cloud.io/os-config/internal/schema"
)

var agentLog = logf.Log.WithName("agent")

// dialSystemd opens the D-Bus connection used when no connection is injected.
var dialSystemd = func(ctx context.Context, hostRoot string) (SystemdConnection, error) {
	return NewDBusConnection(ctx, hostRoot)
}

// Config holds the configuration for the Agent.
type Config struct {
	config.Config

	// SystemdConn is the systemd connection. If nil, a real D-Bus connection
	// is used unless SkipSystemd is set.
	SystemdConn SystemdConnection

	// Services overrides the service manager built from SystemdConn.
	Services ServiceController

	// Files overrides the file applier rooted at HostRoot.
	Files FileOperations

	// KeyGenerator produces identity keys. Defaults to crypto/rand.
	KeyGenerator configjson.KeyGenerator

	// FetcherOptions are passed to every remote fetcher.
	FetcherOptions []remote.Option

	// RequireManaged makes update and leave fail on an unmanaged device
	// instead of doing nothing.
	RequireManaged bool
}

// Agent runs the os-config commands against one device.
type Agent struct {
	cfg            config.Config
	conn           SystemdConnection
	services       ServiceController
	files          FileOperations
	orchestrator   *Orchestrator
	keys           configjson.KeyGenerator
	merger         *configjson.Merger
	fetcherOpts    []remote.Option
	requireManaged bool
}

// New creates a new Agent with the given configuration.
// Use NewWithContext for production use when a real systemd connection is needed.
func New(cfg Config) (*Agent, error) {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext creates a new Agent with the given configuration and context.
// The context is used for creating the systemd D-Bus connection.
func NewWithContext(ctx context.Context, cfg Config) (*Agent, error) {
	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &Agent{
		cfg:            cfg.Config,
		services:       cfg.Services,
		files:          cfg.Files,
		keys:           cfg.KeyGenerator,
		fetcherOpts:    cfg.FetcherOptions,
		requireManaged: cfg.RequireManaged,
	}

	if a.services == nil {
		conn := cfg.SystemdConn
		if conn == nil {
			if cfg.SkipSystemd {
				conn = NewNoOpSystemdConnection()
			} else {
				dbusConn, err := dialSystemd(ctx, cfg.HostRoot)
				if err != nil {
					return nil, classify(CategoryService, fmt.Errorf("failed to create systemd connection: %w", err))
				}
				conn = dbusConn
			}
		}
		a.conn = conn
		a.services = NewServiceManager(conn)
	}
	if a.files == nil {
		a.files = NewFileApplier(cfg.HostRoot)
	}
	if a.keys == nil {
		a.keys = configjson.NewRandomKeyGenerator()
	}

	a.orchestrator = NewOrchestrator(a.files, a.services)
	a.merger = configjson.NewMerger(a.keys)
	return a, nil
}

// Close closes any resources held by the agent.
func (a *Agent) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}

// Join provisions the device from a provisioning document: merges it into
// config.json, waits for the remote configuration of the new endpoint and
// applies every declared file regardless of what is on disk.
func (a *Agent) Join(ctx context.Context, provisioning string) error {
	return a.run("join", func() error {
		catalog, store, err := a.load()
		if err != nil {
			return err
		}

		incoming, err := configjson.ParseProvisioning(provisioning)
		if err != nil {
			return classify(CategoryMerge, err)
		}
		res, err := a.merger.Merge(store, incoming)
		if err != nil {
			return classify(CategoryMerge, fmt.Errorf("merge provisioning document: %w", err))
		}
		agentLog.Info("merged provisioning document", "endpoint", res.APIEndpoint, "key", string(res.KeySource))

		rc, err := a.fetch(ctx, store, true)
		if err != nil {
			return err
		}
		a.migrate(catalog, rc, store)

		if err := a.save(store); err != nil {
			return err
		}

		return a.withSupervisor(ctx, func() error {
			result, err := a.orchestrator.Apply(ctx, catalog.Schema(), rc)
			logResult(result)
			return err
		})
	})
}

// Update fetches the remote configuration once and applies it when any
// declared file differs from disk.
func (a *Agent) Update(ctx context.Context) error {
	return a.run("update", func() error {
		catalog, store, err := a.load()
		if err != nil {
			return err
		}
		if !store.Managed() {
			return a.unmanaged("update")
		}

		rc, err := a.fetch(ctx, store, false)
		if err != nil {
			return err
		}
		mig := a.migrate(catalog, rc, store)

		changed, err := HasChanges(a.files, catalog.Schema(), rc)
		if err != nil {
			return err
		}

		if mig.Changed() {
			if err := a.save(store); err != nil {
				return err
			}
		}

		if !changed {
			agentLog.Info("service configuration up to date")
			return nil
		}

		return a.withSupervisor(ctx, func() error {
			result, err := a.orchestrator.Apply(ctx, catalog.Schema(), rc)
			logResult(result)
			return err
		})
	})
}

// Diff fetches the remote configuration once and reports the files an
// update would change. Nothing is written.
func (a *Agent) Diff(ctx context.Context) ([]FileChange, error) {
	var changes []FileChange
	err := a.run("diff", func() error {
		catalog, store, err := a.load()
		if err != nil {
			return err
		}
		if !store.Managed() {
			return a.unmanaged("diff")
		}
		rc, err := a.fetch(ctx, store, false)
		if err != nil {
			return err
		}
		changes, err = DiffFiles(a.files, catalog.Schema(), rc)
		return err
	})
	return changes, err
}

// Leave removes every declared file, restarts the affected units and
// deletes the schema keys from config.json. The identity key of the current
// endpoint is kept in the key history.
func (a *Agent) Leave(ctx context.Context) error {
	return a.run("leave", func() error {
		catalog, store, err := a.load()
		if err != nil {
			return err
		}
		if !store.Managed() {
			return a.unmanaged("leave")
		}

		err = a.withSupervisor(ctx, func() error {
			result, err := a.orchestrator.Remove(ctx, catalog.Schema())
			logResult(result)
			return err
		})
		if err != nil {
			return err
		}

		configjson.NewIdentityKeyStore(store, a.keys).Preserve()
		deleted := store.DeleteKeys(catalog.Keys())
		agentLog.Info("deleted configuration keys", "keys", deleted)

		return a.save(store)
	})
}

// GenerateIdentityKey sets deviceApiKey for the current endpoint when it is
// missing, reusing a stored key when one exists.
func (a *Agent) GenerateIdentityKey(ctx context.Context) (configjson.GenerateOutcome, error) {
	var outcome configjson.GenerateOutcome
	err := a.run("generate-identity-key", func() error {
		store, err := configjson.Load(a.cfg.ConfigJSONPath)
		if err != nil {
			return classify(CategoryMerge, err)
		}

		outcome = configjson.NewIdentityKeyStore(store, a.keys).GenerateIdentityKey()
		agentLog.Info("identity key", "outcome", string(outcome))

		switch outcome {
		case configjson.OutcomeReused, configjson.OutcomeGenerated:
			return a.save(store)
		}
		return nil
	})
	return outcome, err
}

// run records metrics for one command.
func (a *Agent) run(command string, fn func() error) error {
	start := time.Now()
	err := fn()

	result := "success"
	if err != nil {
		result = CategoryOf(err).String()
	}
	metrics.RecordCommand(command, result, time.Since(start).Seconds())
	if werr := metrics.WriteTextfile(a.cfg.MetricsTextfile); werr != nil {
		agentLog.Error(werr, "failed to write metrics textfile")
	}
	return err
}

func (a *Agent) load() (*schema.Catalog, *configjson.Store, error) {
	catalog, err := schema.Load(a.cfg.SchemaPath)
	if err != nil {
		return nil, nil, classify(CategorySchema, err)
	}
	store, err := configjson.Load(a.cfg.ConfigJSONPath)
	if err != nil {
		return nil, nil, classify(CategoryMerge, err)
	}
	return catalog, store, nil
}

func (a *Agent) save(store *configjson.Store) error {
	if err := store.Save(); err != nil {
		return classify(CategoryWrite, err)
	}
	agentLog.V(1).Info("saved configuration", "path", store.Path())
	return nil
}

func (a *Agent) unmanaged(command string) error {
	if a.requireManaged {
		return classify(CategoryUnmanaged, fmt.Errorf("%s: %w", command, ErrDeviceUnmanaged))
	}
	agentLog.Info("unmanaged device, nothing to do", "command", command)
	return nil
}

func (a *Agent) fetch(ctx context.Context, store *configjson.Store, retry bool) (*osv1alpha1.RemoteConfiguration, error) {
	rootCA, err := store.RootCA()
	if err != nil {
		return nil, classify(CategoryFetch, err)
	}

	opts := append([]remote.Option{remote.WithTimeout(a.cfg.RequestTimeout)}, a.fetcherOpts...)
	fetcher, err := remote.NewFetcher(rootCA, opts...)
	if err != nil {
		return nil, classify(CategoryFetch, err)
	}

	url := remote.ConfigURL(store.APIEndpoint(), a.cfg.ConfigRoute)
	rc, err := fetcher.Fetch(ctx, url, retry)
	if err != nil {
		return nil, classify(CategoryFetch, fmt.Errorf("fetch configuration: %w", err))
	}
	return rc, nil
}

func (a *Agent) migrate(catalog *schema.Catalog, rc *osv1alpha1.RemoteConfiguration, store *configjson.Store) migrate.Result {
	res := migrate.Apply(catalog.Whitelist(), rc.Config.Overrides, store)
	if res.Changed() {
		agentLog.Info("applied configuration overrides", "inserted", res.Inserted, "updated", res.Updated)
	}
	return res
}

// withSupervisor runs fn with the supervisor unit stopped, as the supervisor
// policy dictates. The supervisor is started again even when fn fails.
func (a *Agent) withSupervisor(ctx context.Context, fn func() error) error {
	unit := a.cfg.SupervisorUnit

	switch a.cfg.SupervisorPolicy {
	case config.SupervisorNever:
		return fn()
	case config.SupervisorIfPresent:
		exists, err := a.services.Exists(ctx, unit)
		if err != nil {
			return classify(CategoryService, err)
		}
		if !exists {
			agentLog.V(1).Info("supervisor not present", "unit", unit)
			return fn()
		}
	}

	agentLog.Info("stopping supervisor", "unit", unit)
	if err := a.services.Stop(ctx, unit); err != nil {
		return classify(CategoryService, fmt.Errorf("stop supervisor %s: %w", unit, err))
	}
	if err := a.services.AwaitExit(ctx, unit); err != nil {
		return classify(CategoryService, err)
	}

	fnErr := fn()

	agentLog.Info("starting supervisor", "unit", unit)
	if err := a.services.Start(ctx, unit); err != nil {
		if fnErr != nil {
			agentLog.Error(err, "failed to start supervisor", "unit", unit)
			return fnErr
		}
		return classify(CategoryService, fmt.Errorf("start supervisor %s: %w", unit, err))
	}
	return fnErr
}

func logResult(r *ApplyResult) {
	if r == nil {
		return
	}
	agentLog.Info("apply finished",
		"filesWritten", r.FilesWritten,
		"filesSkipped", r.FilesSkipped,
		"filesRemoved", r.FilesRemoved,
		"unitsStopped", r.UnitsStopped,
		"unitsRestarted", r.UnitsRestarted,
		"unitsScheduled", r.UnitsScheduled,
	)
}
