//go:build linux
// +build linux

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
	"os/exec"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DBusConnection implements SystemdConnection using go-systemd/dbus.
type DBusConnection struct {
	conn     *dbus.Conn
	hostRoot string
}

// NewDBusConnection creates a new D-Bus connection to systemd.
// hostRoot is the root the systemd-run helper is chrooted into; "/" or ""
// runs it directly.
func NewDBusConnection(ctx context.Context, hostRoot string) (*DBusConnection, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &DBusConnection{conn: conn, hostRoot: hostRoot}, nil
}

// Close closes the D-Bus connection.
func (c *DBusConnection) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// GetUnitProperty gets a property of a unit.
func (c *DBusConnection) GetUnitProperty(ctx context.Context, unit, property string) (interface{}, error) {
	prop, err := c.conn.GetUnitPropertyContext(ctx, unit, property)
	if err != nil {
		return nil, err
	}
	return prop.Value.Value(), nil
}

// StartUnit starts a unit and waits for completion.
func (c *DBusConnection) StartUnit(ctx context.Context, name string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.StartUnitContext(ctx, name, "replace", ch); err != nil {
		return err
	}
	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("start %s: job %s", name, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopUnit queues a stop job. A nil channel means the call does not wait.
func (c *DBusConnection) StopUnit(ctx context.Context, name string) error {
	_, err := c.conn.StopUnitContext(ctx, name, "replace", nil)
	return err
}

// ReloadOrRestartUnit queues a reload-or-restart job without waiting.
func (c *DBusConnection) ReloadOrRestartUnit(ctx context.Context, name string) error {
	_, err := c.conn.ReloadOrRestartUnitContext(ctx, name, "replace", nil)
	return err
}

// ScheduleRestart hands the restart to a transient timer unit so it fires
// after this process has exited.
func (c *DBusConnection) ScheduleRestart(ctx context.Context, name string, delay time.Duration) error {
	args := []string{
		"systemd-run",
		"--on-active=" + strconv.Itoa(int(delay.Seconds())),
		"systemctl", "restart", name,
	}
	var cmd *exec.Cmd
	if c.hostRoot == "" || c.hostRoot == "/" {
		cmd = exec.CommandContext(ctx, args[0], args[1:]...)
	} else {
		cmd = exec.CommandContext(ctx, "chroot", append([]string{c.hostRoot}, args...)...)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("systemd-run: %w: %s", err, out)
	}
	return nil
}
