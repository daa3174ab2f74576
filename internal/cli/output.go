package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario, assertion or validation failed
	ExitCommandError = 2 // bad arguments, unreadable files, database errors
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeConfigInvalid   = "E_CONFIG_INVALID"
	ErrCodeScenarioInvalid = "E_SCENARIO_INVALID"
	ErrCodeTestFailed      = "E_TEST_FAILED"
	ErrCodeSessionNotFound = "E_SESSION_NOT_FOUND"
)

// ExitError carries the process exit code for a failed command.
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

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code; errors without one exit 1.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every JSON output.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	Session string    `json:"session,omitempty"` // journal session written or read
}

// CLIError describes a failure in a JSON response.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Output renders command results as an indented JSON envelope or as text.
type Output struct {
	JSON    bool
	Writer  io.Writer
	Verbose bool
}

// Emit writes a successful result. text renders the human-readable form.
func (o *Output) Emit(session string, data any, text func(w io.Writer)) error {
	if o.JSON {
		return o.write(CLIResponse{Status: "ok", Data: data, Session: session})
	}
	text(o.Writer)
	return nil
}

// Fail writes a failed result. data still goes into the JSON envelope so
// callers can see partial results; text may be nil, in which case only the
// error line (and details under --verbose) is printed.
func (o *Output) Fail(session string, cerr CLIError, data any, text func(w io.Writer)) error {
	if o.JSON {
		return o.write(CLIResponse{Status: "error", Data: data, Error: &cerr, Session: session})
	}
	if text != nil {
		text(o.Writer)
		return nil
	}
	fmt.Fprintf(o.Writer, "Error [%s]: %s\n", cerr.Code, cerr.Message)
	if o.Verbose && cerr.Details != nil {
		fmt.Fprintf(o.Writer, "Details: %v\n", cerr.Details)
	}
	return nil
}

func (o *Output) write(resp CLIResponse) error {
	enc := json.NewEncoder(o.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
