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
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"k8s.io/utils/ptr"

	osv1alpha1 "in-cloud.io/os-config/api/v1alpha1"
)

func newTestOrchestrator(files FileOperations, conn *MockSystemdConnection) *Orchestrator {
	return NewOrchestrator(files, NewServiceManager(conn).WithAwaitPolicy(time.Millisecond, 3))
}

func policySchema() *osv1alpha1.Schema {
	s := testSchema()
	s.Services[0].SystemdServices = []string{"openvpn.service", "openvpn-helper.service"}
	s.Services[0].SystemdPolicies = map[string]osv1alpha1.SystemdPolicy{
		"openvpn.service":        {Priority: ptr.To(20)},
		"openvpn-helper.service": {Priority: ptr.To(5), RestartMode: osv1alpha1.RestartDeferred},
	}
	s.Services[1].SystemdServices = []string{"chronyd.service", "chrony-wait.service"}
	s.Services[1].SystemdPolicies = map[string]osv1alpha1.SystemdPolicy{
		"chronyd.service": {},
	}
	return s
}

func loadAll(conn *MockSystemdConnection, units ...string) {
	for _, u := range units {
		conn.SetProperty(u, "LoadState", "loaded")
		conn.SetProperty(u, "ActiveState", "active")
	}
}

func TestBuildPlan(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "openvpn.service", "openvpn-helper.service", "chronyd.service", "chrony-wait.service")
	o := newTestOrchestrator(newFakeFiles(), conn)

	plan, err := o.BuildPlan(context.Background(), policySchema())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}

	want := Plan{
		{Unit: "openvpn-helper.service", Priority: 5, Mode: osv1alpha1.RestartDeferred},
		{Unit: "openvpn.service", Priority: 20, Mode: osv1alpha1.RestartImmediate},
		{Unit: "chronyd.service", Priority: osv1alpha1.DefaultPriority, Mode: osv1alpha1.RestartImmediate},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("BuildPlan() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPlan_SkipsMissingUnits(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "chronyd.service")
	conn.SetProperty("openvpn.service", "LoadState", "not-found")
	o := newTestOrchestrator(newFakeFiles(), conn)

	plan, err := o.BuildPlan(context.Background(), policySchema())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if diff := cmp.Diff([]string{"chronyd.service"}, plan.Units()); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPlan_LastPolicyWins(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "shared.service")
	o := newTestOrchestrator(newFakeFiles(), conn)

	schema := &osv1alpha1.Schema{
		Services: []osv1alpha1.Service{
			{
				ID:              "first",
				SystemdServices: []string{"shared.service"},
				SystemdPolicies: map[string]osv1alpha1.SystemdPolicy{"shared.service": {Priority: ptr.To(1)}},
			},
			{
				ID:              "second",
				SystemdServices: []string{"shared.service"},
				SystemdPolicies: map[string]osv1alpha1.SystemdPolicy{
					"shared.service": {Priority: ptr.To(7), RestartMode: osv1alpha1.RestartDeferred},
				},
			},
		},
	}

	plan, err := o.BuildPlan(context.Background(), schema)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	want := Plan{{Unit: "shared.service", Priority: 7, Mode: osv1alpha1.RestartDeferred}}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("BuildPlan() mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_FilesAndUnits(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "openvpn.service", "openvpn-helper.service", "chronyd.service")
	files := newFakeFiles()
	o := newTestOrchestrator(files, conn)

	result, err := o.Apply(context.Background(), policySchema(), testRemote())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := &ApplyResult{FilesWritten: 3, UnitsStopped: 2, UnitsRestarted: 2, UnitsScheduled: 1}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("ApplyResult mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"openvpn.service", "chronyd.service"}, conn.StopCalls); diff != "" {
		t.Errorf("StopCalls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"chronyd.service", "openvpn.service"}, conn.ReloadCalls); diff != "" {
		t.Errorf("ReloadCalls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{DeferredRestartDelay}, conn.Delays); diff != "" {
		t.Errorf("Delays mismatch (-want +got):\n%s", diff)
	}
	if files.contents["/etc/openvpn/openvpn.conf"] != "client\n" {
		t.Errorf("openvpn.conf = %q", files.contents["/etc/openvpn/openvpn.conf"])
	}
	if m := files.modes["/etc/openvpn/ca.crt"]; m == nil || *m != 0600 {
		t.Errorf("ca.crt mode = %v, want 0600", m)
	}
	if m := files.modes["/etc/openvpn/openvpn.conf"]; m != nil {
		t.Errorf("openvpn.conf mode = %v, want nil", *m)
	}
}

func TestApply_FilesWrittenInNameOrder(t *testing.T) {
	files := newFakeFiles()
	o := newTestOrchestrator(files, NewMockConnection())

	if _, err := o.Apply(context.Background(), testSchema(), testRemote()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{"/etc/openvpn/ca.crt", "/etc/openvpn/openvpn.conf", "/etc/chrony.conf"}
	if diff := cmp.Diff(want, files.writes); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_LookupFailureStopsNothing(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "openvpn.service", "chronyd.service")
	files := newFakeFiles()
	o := newTestOrchestrator(files, conn)

	remote := testRemote()
	delete(remote.Services, "ntp")

	_, err := o.Apply(context.Background(), policySchema(), remote)
	var nf *ServiceNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Apply() error = %v, want ServiceNotFoundError", err)
	}
	if len(conn.StopCalls) != 0 || len(files.writes) != 0 {
		t.Errorf("stops = %v writes = %v, want none", conn.StopCalls, files.writes)
	}
}

func TestApply_ProbeErrorAborts(t *testing.T) {
	conn := NewMockConnection()
	conn.Error = errors.New("access denied")
	files := newFakeFiles()
	o := newTestOrchestrator(files, conn)

	_, err := o.Apply(context.Background(), policySchema(), testRemote())
	if err == nil {
		t.Fatal("Apply() should fail")
	}
	if ExitCode(err) != 5 {
		t.Errorf("ExitCode() = %d, want 5", ExitCode(err))
	}
	if len(conn.StopCalls) != 0 || len(files.writes) != 0 {
		t.Errorf("stops = %v writes = %v, want none", conn.StopCalls, files.writes)
	}
}

func TestApply_AwaitTimeout(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "chronyd.service")
	conn.stateSequence["chronyd.service"] = []string{"active", "active", "active"}
	files := newFakeFiles()
	o := newTestOrchestrator(files, conn)

	schema := policySchema()
	schema.Services[0].SystemdPolicies = nil

	_, err := o.Apply(context.Background(), schema, testRemote())
	if !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("Apply() error = %v, want ErrAwaitTimeout", err)
	}
	if ExitCode(err) != 5 {
		t.Errorf("ExitCode() = %d, want 5", ExitCode(err))
	}
	if len(files.writes) != 0 {
		t.Errorf("writes = %v, want none", files.writes)
	}
}

func TestApply_WriteErrorAborts(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "chronyd.service")
	files := newFakeFiles()
	files.err = errors.New("read-only file system")
	o := newTestOrchestrator(files, conn)

	_, err := o.Apply(context.Background(), policySchema(), testRemote())
	if ExitCode(err) != 6 {
		t.Fatalf("ExitCode() = %d, want 6 (err = %v)", ExitCode(err), err)
	}
	if len(conn.StopCalls) != 1 {
		t.Errorf("StopCalls = %v, want [chronyd.service]", conn.StopCalls)
	}
	if len(conn.ReloadCalls) != 0 {
		t.Errorf("ReloadCalls = %v, want none after a failed write", conn.ReloadCalls)
	}
}

func TestApply_Idempotent(t *testing.T) {
	files := newFakeFiles()
	o := newTestOrchestrator(files, NewMockConnection())
	ctx := context.Background()

	if _, err := o.Apply(ctx, testSchema(), testRemote()); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	result, err := o.Apply(ctx, testSchema(), testRemote())
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if result.FilesWritten != 0 || result.FilesSkipped != 3 {
		t.Errorf("second Apply() = %+v, want 0 written, 3 skipped", result)
	}
}

func TestRemove(t *testing.T) {
	conn := NewMockConnection()
	loadAll(conn, "openvpn.service")
	files := newFakeFiles()
	files.contents["/etc/openvpn/openvpn.conf"] = "client\n"
	events := []string{}
	files.record = func(e string) { events = append(events, e) }
	o := newTestOrchestrator(files, conn)

	schema := testSchema()
	schema.Services[0].SystemdPolicies = map[string]osv1alpha1.SystemdPolicy{"openvpn.service": {}}

	result, err := o.Remove(context.Background(), schema)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if result.FilesRemoved != 1 || result.UnitsStopped != 1 || result.UnitsRestarted != 1 {
		t.Errorf("Remove() = %+v", result)
	}
	want := []string{"remove:/etc/openvpn/ca.crt", "remove:/etc/openvpn/openvpn.conf", "remove:/etc/chrony.conf"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_ContextCanceled(t *testing.T) {
	files := newFakeFiles()
	o := newTestOrchestrator(files, NewMockConnection())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Apply(ctx, testSchema(), testRemote()); !errors.Is(err, context.Canceled) {
		t.Errorf("Apply() error = %v, want context.Canceled", err)
	}
	if len(files.writes) != 0 {
		t.Errorf("writes = %v, want none", files.writes)
	}
}
