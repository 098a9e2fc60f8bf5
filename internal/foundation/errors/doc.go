// Package errors provides the classified error primitives used across the launcher.
//
// Every failure the launcher can report to the user is a ClassifiedError carrying a
// category (runtime, install, spawn, readiness, child, ...), a severity, and a
// small bag of structured context such as the exit status of a failed install.
// The CLIErrorAdapter turns these into console messages and process exit codes.
//
// Example usage:
//
//	err := errors.InstallFailed(exitCode).
//		WithContext("command", "npm install").
//		WithCause(runErr).
//		Build()
package errors
