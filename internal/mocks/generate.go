// Package mocks provides generated mock implementations for testing.
//
// This package uses go.uber.org/mock (gomock) for interfaces whose tests
// benefit from call expectations; simpler hand-written fakes live in
// internal/mocks/fakes.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for the Notifier interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=notifier_mock.go github.com/campusgate/portal-api/internal/ports Notifier
