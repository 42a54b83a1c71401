// Package mocks contains generated mock implementations for testing.
//
// IMPORTANT: Do not edit mock_*.go files manually!
// Use `go generate ./internal/mocks` to regenerate.
//
// Mocks are generated from production interfaces:
//   - internal/agent/services.go → ServiceController
//   - internal/agent/files.go → FileOperations
//   - internal/agent/systemd.go → SystemdConnection
package mocks

//go:generate go run go.uber.org/mock/mockgen -source=../agent/services.go -destination=mock_services.go -package=mocks
//go:generate go run go.uber.org/mock/mockgen -source=../agent/files.go -destination=mock_files.go -package=mocks
//go:generate go run go.uber.org/mock/mockgen -source=../agent/systemd.go -destination=mock_systemd.go -package=mocks
