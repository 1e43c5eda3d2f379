package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/polyipseity/pytextgen/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // every document succeeded
	ExitFailure      = 1 // one or more documents failed to regenerate
	ExitCommandError = 2 // command error (bad flags, cache unreachable, ...)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// RunSummary renders a RunResult: counts first, then one line per failed
// document with its specific errors.
func (f *OutputFormatter) RunSummary(result *engine.RunResult) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(result)
	}

	fmt.Fprintf(f.Writer, "changed %d, unchanged %d, failed %d\n",
		result.Changed, result.Unchanged, result.Failed)

	// Map iteration is unordered; sort for stable output.
	paths := make([]string, 0, len(result.Documents))
	for path := range result.Documents {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		dr := result.Documents[path]
		if dr.Outcome != engine.OutcomeFailed {
			continue
		}
		fmt.Fprintf(f.Writer, "failed: %s\n", path)
		for _, rerr := range dr.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", rerr.Error())
		}
	}
	return nil
}

// exitForResult maps a run result onto the process exit contract.
func exitForResult(result *engine.RunResult) error {
	if result.Ok() {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) failed", result.Failed))
}
