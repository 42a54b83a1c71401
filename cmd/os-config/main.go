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

// Package main is the entry point for os-config.
// os-config reconciles the service configuration of a device with the
// configuration its fleet API declares.
package main

import (
	"fmt"
	"os"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"in-cloud.io/os-config/internal/agent"
)

var setupLog = logf.Log.WithName("setup")

func main() {
	opts := zap.Options{}
	rootCmd := buildRootCmd(&opts)

	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	os.Exit(agent.ExitCode(err))
}

// printError prints err followed by the chain of causes it wraps.
func printError(err error) {
	causes := agent.Causes(err)
	if len(causes) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", causes[0])
	for _, c := range causes[1:] {
		fmt.Fprintf(os.Stderr, "  caused by: %s\n", c)
	}
}
