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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// defaultFileMode is used for files created without an explicit perm.
const defaultFileMode os.FileMode = 0644

// modeBits are the parts of a file mode a declared perm controls.
const modeBits = os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky

// FileOperations defines the file primitives the orchestrator relies on.
type FileOperations interface {
	// ReadCurrent returns the on-disk contents of path, or "" when the file
	// is missing or unreadable.
	ReadCurrent(path string) string

	// Write replaces the file at path with content. A nil mode leaves the
	// permission bits of an existing file untouched.
	Write(path, content string, mode *os.FileMode) (bool, error)

	// Remove deletes the file at path. A missing file is not an error.
	Remove(path string) (bool, error)
}

var _ FileOperations = (*FileApplier)(nil)

// FileApplier writes service configuration files to the host filesystem.
// It supports atomic writes, idempotent deletes, and content comparison.
type FileApplier struct {
	hostRoot string // e.g., "/host" for container, "" for direct
}

// NewFileApplier creates a new file applier.
// hostRoot is the path prefix for all file operations (e.g., "/host" when
// running as a container with the host filesystem mounted).
func NewFileApplier(hostRoot string) *FileApplier {
	return &FileApplier{hostRoot: hostRoot}
}

func (a *FileApplier) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute: %s", path)
	}
	return filepath.Join(a.hostRoot, path), nil
}

func (a *FileApplier) ReadCurrent(path string) string {
	full, err := a.resolve(path)
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return ""
	}
	return string(data)
}

// Write is a no-op when the file already holds content with the requested mode.
func (a *FileApplier) Write(path, content string, mode *os.FileMode) (bool, error) {
	full, err := a.resolve(path)
	if err != nil {
		return false, err
	}

	if !a.needsUpdate(full, []byte(content), mode) {
		return false, nil
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	opts := []renameio.Option{renameio.WithTempDir(dir)}
	if mode == nil {
		opts = append(opts, renameio.WithPermissions(defaultFileMode), renameio.WithExistingPermissions())
	}

	t, err := renameio.NewPendingFile(full, opts...)
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = t.Cleanup() }()

	if _, err := t.WriteString(content); err != nil {
		return false, fmt.Errorf("write content: %w", err)
	}

	// Chmod on the open file keeps setuid, setgid and sticky bits.
	if mode != nil {
		if err := t.Chmod(*mode); err != nil {
			return false, fmt.Errorf("set mode: %w", err)
		}
	}

	if err := t.CloseAtomicallyReplace(); err != nil {
		return false, fmt.Errorf("atomic replace %s: %w", path, err)
	}
	return true, nil
}

func (a *FileApplier) Remove(path string) (bool, error) {
	full, err := a.resolve(path)
	if err != nil {
		return false, err
	}
	err = os.Remove(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("delete file: %w", err)
}

func (a *FileApplier) needsUpdate(path string, content []byte, mode *os.FileMode) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return true
	}
	if mode != nil && info.Mode()&modeBits != *mode {
		return true
	}
	existing, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	return string(existing) != string(content)
}
