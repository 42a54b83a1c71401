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

// Package config holds the engine configuration. Values come from built-in
// defaults, an optional YAML file and the environment, in increasing order of
// precedence. Command-line flags are applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

// Environment variables read by the loader.
const (
	EnvSchemaPath       = "OS_CONFIG_SCHEMA"
	EnvConfigJSONPath   = "CONFIG_JSON"
	EnvHostRoot         = "OS_CONFIG_HOST_ROOT"
	EnvSupervisorPolicy = "OS_CONFIG_SUPERVISOR_POLICY"
)

// Defaults.
const (
	DefaultSchemaPath     = "/etc/os-config.json"
	DefaultConfigJSONPath = "/mnt/boot/config.json"
	DefaultSupervisorUnit = "supervisor.service"
	DefaultRequestTimeout = 60 * time.Second
)

// SupervisorPolicy decides whether the supervisor unit is stopped around
// an apply.
type SupervisorPolicy string

const (
	// SupervisorAlways stops the supervisor before and starts it after every apply.
	SupervisorAlways SupervisorPolicy = "always"
	// SupervisorNever leaves the supervisor alone.
	SupervisorNever SupervisorPolicy = "never"
	// SupervisorIfPresent behaves like SupervisorAlways when the unit exists.
	SupervisorIfPresent SupervisorPolicy = "if-present"
)

// Config is the engine configuration.
type Config struct {
	SchemaPath       string           `yaml:"schemaPath"`
	ConfigJSONPath   string           `yaml:"configJsonPath"`
	ConfigRoute      string           `yaml:"configRoute"`
	HostRoot         string           `yaml:"hostRoot"`
	SupervisorUnit   string           `yaml:"supervisorUnit"`
	SupervisorPolicy SupervisorPolicy `yaml:"supervisorPolicy"`
	SkipSystemd      bool             `yaml:"skipSystemd"`
	RequestTimeout   time.Duration    `yaml:"requestTimeout"`
	MetricsTextfile  string           `yaml:"metricsTextfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SchemaPath:       DefaultSchemaPath,
		ConfigJSONPath:   DefaultConfigJSONPath,
		ConfigRoute:      osv1alpha1.ConfigRoute,
		SupervisorUnit:   DefaultSupervisorUnit,
		SupervisorPolicy: SupervisorIfPresent,
		RequestTimeout:   DefaultRequestTimeout,
	}
}

// Validate rejects relative paths and unknown supervisor policies.
func (c Config) Validate() error {
	var errs []error
	for name, p := range map[string]string{
		"schemaPath":     c.SchemaPath,
		"configJsonPath": c.ConfigJSONPath,
	} {
		if !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("%s must be absolute: %q", name, p))
		}
	}
	if c.HostRoot != "" && !filepath.IsAbs(c.HostRoot) {
		errs = append(errs, fmt.Errorf("hostRoot must be absolute: %q", c.HostRoot))
	}
	if c.MetricsTextfile != "" && !filepath.IsAbs(c.MetricsTextfile) {
		errs = append(errs, fmt.Errorf("metricsTextfile must be absolute: %q", c.MetricsTextfile))
	}
	if !strings.HasPrefix(c.ConfigRoute, "/") {
		errs = append(errs, fmt.Errorf("configRoute must start with /: %q", c.ConfigRoute))
	}
	switch c.SupervisorPolicy {
	case SupervisorAlways, SupervisorNever, SupervisorIfPresent:
	default:
		errs = append(errs, fmt.Errorf("unknown supervisorPolicy %q", c.SupervisorPolicy))
	}
	if c.SupervisorPolicy != SupervisorNever && c.SupervisorUnit == "" {
		errs = append(errs, errors.New("supervisorUnit is required unless supervisorPolicy is never"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("requestTimeout must be positive: %s", c.RequestTimeout))
	}
	return errors.Join(errs...)
}

// Loader loads configuration with precedence: env > file > defaults.
type Loader struct {
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader. An empty path skips the file.
func NewLoader(path string) *Loader {
	return &Loader{path: path, lookupEnv: os.LookupEnv}
}

// WithLookupEnv replaces the environment lookup.
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// Load returns the merged configuration. It does not validate it.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		if err := loadFile(l.path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	return cfg, nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	if v, ok := l.lookupEnv(EnvSchemaPath); ok && v != "" {
		cfg.SchemaPath = v
	}
	if v, ok := l.lookupEnv(EnvConfigJSONPath); ok && v != "" {
		cfg.ConfigJSONPath = v
	}
	if v, ok := l.lookupEnv(EnvHostRoot); ok {
		cfg.HostRoot = v
	}
	if v, ok := l.lookupEnv(EnvSupervisorPolicy); ok && v != "" {
		cfg.SupervisorPolicy = SupervisorPolicy(v)
	}
}

// loadFile decodes a YAML file over cfg. Unknown fields are rejected.
func loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}
