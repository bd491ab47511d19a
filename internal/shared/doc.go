// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a capturing slog handler for asserting on
// log output and small CSV fixtures shared by the service, HTTP and CLI tests.
// It must not import any other internal package.
package shared
