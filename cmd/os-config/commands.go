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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"in-cloud.io/os-config/internal/agent"
	"in-cloud.io/os-config/internal/config"
)

// globalFlags are shared by every subcommand. Flags override the
// configuration file and the environment only when set explicitly.
type globalFlags struct {
	configFile       string
	schemaPath       string
	configJSONPath   string
	hostRoot         string
	supervisorPolicy string
	skipSystemd      bool
	metricsTextfile  string
	requireManaged   bool
}

func buildRootCmd(zapOpts *zap.Options) *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "os-config",
		Short: "Reconcile device service configuration with the fleet API",
		Long: `os-config joins a device to a fleet, keeps the configuration files of its
services in sync with the fleet API and removes them again when the device leaves.

Configuration is read from built-in defaults, an optional YAML file (--config),
the environment (OS_CONFIG_SCHEMA, CONFIG_JSON, OS_CONFIG_HOST_ROOT,
OS_CONFIG_SUPERVISOR_POLICY) and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logf.SetLogger(zap.New(zap.UseFlagOptions(zapOpts)))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Path to a YAML configuration file")
	pf.StringVar(&flags.schemaPath, "schema", config.DefaultSchemaPath, "Path to the service schema")
	pf.StringVar(&flags.configJSONPath, "config-json", config.DefaultConfigJSONPath, "Path to config.json")
	pf.StringVar(&flags.hostRoot, "host-root", "", "Path prefix for managed files")
	pf.StringVar(&flags.supervisorPolicy, "supervisor-policy", string(config.SupervisorIfPresent),
		"Stop the supervisor around applies: always, never or if-present")
	pf.BoolVar(&flags.skipSystemd, "skip-systemd", false, "Skip systemd (for envs without systemd)")
	pf.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this node-exporter textfile")

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)
	pf.AddGoFlagSet(goFlags)

	rootCmd.AddCommand(
		buildJoinCmd(&flags),
		buildUpdateCmd(&flags),
		buildLeaveCmd(&flags),
		buildGenerateIdentityKeyCmd(&flags),
	)
	return rootCmd
}

func buildJoinCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "join <provisioning-json>",
		Short: "Join the fleet described by a provisioning document",
		Long: `Merge a provisioning document into config.json, wait for the fleet API to
serve the device configuration and apply it. Pass "-" to read the document
from standard input.`,
		Example: `  os-config join '{"apiEndpoint":"https://api.example.com","deviceType":"raspberrypi4"}'
  cat provisioning.json | os-config join -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withAgent(cmd, flags, func(ctx context.Context, a *agent.Agent) error {
				return a.Join(ctx, doc)
			})
		},
	}
}

func buildUpdateCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply the current fleet configuration if it changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(cmd, flags, func(ctx context.Context, a *agent.Agent) error {
				if !dryRun {
					return a.Update(ctx)
				}
				changes, err := a.Diff(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(changes) == 0 {
					_, _ = fmt.Fprintln(out, "No changes")
					return nil
				}
				for _, c := range changes {
					_, _ = fmt.Fprintf(out, "%s/%s\t%s\n", c.ServiceID, c.File, c.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would change without writing them")
	cmd.Flags().BoolVar(&flags.requireManaged, "require-managed", false, "Fail instead of doing nothing on an unmanaged device")
	return cmd
}

func buildLeaveCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Remove the fleet configuration from the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(cmd, flags, func(ctx context.Context, a *agent.Agent) error {
				return a.Leave(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.requireManaged, "require-managed", false, "Fail instead of doing nothing on an unmanaged device")
	return cmd
}

func buildGenerateIdentityKeyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-identity-key",
		Short: "Generate the device identity key for the current endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(cmd, flags, func(ctx context.Context, a *agent.Agent) error {
				outcome, err := a.GenerateIdentityKey(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Identity key: %s\n", outcome)
				return nil
			})
		},
	}
}

// loadConfig merges the configuration sources with explicitly set flags.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	cfg, err := config.NewLoader(flags.configFile).Load()
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("schema") {
		cfg.SchemaPath = flags.schemaPath
	}
	if changed("config-json") {
		cfg.ConfigJSONPath = flags.configJSONPath
	}
	if changed("host-root") {
		cfg.HostRoot = flags.hostRoot
	}
	if changed("supervisor-policy") {
		cfg.SupervisorPolicy = config.SupervisorPolicy(flags.supervisorPolicy)
	}
	if changed("skip-systemd") {
		cfg.SkipSystemd = flags.skipSystemd
	}
	if changed("metrics-textfile") {
		cfg.MetricsTextfile = flags.metricsTextfile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withAgent(cmd *cobra.Command, flags *globalFlags, fn func(context.Context, *agent.Agent) error) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	ctx := signals.SetupSignalHandler()

	setupLog.V(1).Info("starting os-config", "command", cmd.Name(), "schema", cfg.SchemaPath, "configJson", cfg.ConfigJSONPath)

	a, err := agent.NewWithContext(ctx, agent.Config{
		Config:         cfg,
		RequireManaged: flags.requireManaged,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func readDocument(stdin io.Reader, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read provisioning document: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
