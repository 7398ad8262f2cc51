// Package integration contains the end-to-end smoke tests for fe-release.
// Tests in this package run the built binary against a real git repository,
// with the test binary standing in for nx and npm.
//
// Run with: go test ./integration/... -v -timeout 120s
package integration
