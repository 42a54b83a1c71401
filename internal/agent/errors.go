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
)

// ErrDeviceUnmanaged is returned when a command that writes to the device
// runs before the device has joined.
var ErrDeviceUnmanaged = errors.New("device is not managed: no apiEndpoint configured")

// Category classifies fatal errors so callers can map them to exit codes.
type Category int

const (
	CategoryUnknown Category = iota
	CategorySchema
	CategoryFetch
	CategoryService
	CategoryWrite
	CategoryNotFound
	CategoryMerge
	CategoryUnmanaged
)

var categoryNames = map[Category]string{
	CategoryUnknown:   "unknown",
	CategorySchema:    "schema",
	CategoryFetch:     "fetch",
	CategoryService:   "service",
	CategoryWrite:     "write",
	CategoryNotFound:  "not-found",
	CategoryMerge:     "merge",
	CategoryUnmanaged: "unmanaged",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ExitCode is the process exit code for the category.
func (c Category) ExitCode() int {
	switch c {
	case CategorySchema:
		return 3
	case CategoryFetch:
		return 4
	case CategoryService:
		return 5
	case CategoryWrite:
		return 6
	case CategoryNotFound:
		return 7
	case CategoryMerge:
		return 8
	case CategoryUnmanaged:
		return 9
	default:
		return 1
	}
}

// Error is a categorized fatal error.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err in category unless it is nil or already categorized.
func classify(category Category, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Category: category, Err: err}
}

// CategoryOf returns the category of the outermost categorized error in the chain.
func CategoryOf(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, ErrDeviceUnmanaged) {
		return CategoryUnmanaged
	}
	return CategoryUnknown
}

// ExitCode maps err to a process exit code. A nil error is success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return CategoryOf(err).ExitCode()
}

// Causes returns the messages of err and every error it wraps, outermost first.
// Categorized wrappers repeat their inner message and are skipped.
func Causes(err error) []string {
	var out []string
	for err != nil {
		if _, ok := err.(*Error); !ok {
			out = append(out, err.Error())
		}
		err = errors.Unwrap(err)
	}
	return out
}
