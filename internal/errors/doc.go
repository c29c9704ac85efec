// Package errors provides structured, actionable error messages for
// the pushkit CLI.
//
// Each error carries a code (e.g. "E001") that maps to a short
// message, a longer explanation, and a documentation URL, plus an
// optional fix suggestion. The CLI renders them with Format for
// terminal output.
//
// # Error Categories
//
// Errors are organized into categories:
//   - config: configuration file and flag errors
//   - connect: connection establishment errors
//   - auth: channel and user authorization errors
//   - cli: command usage errors
//
// # Usage
//
//	err := errors.New("E001").
//	    WithDetail("No pushkit.json found in " + dir).
//	    WithSuggestion("Run 'pushkit init' or pass --key")
//
//	errors.PrintError(err)
package errors
