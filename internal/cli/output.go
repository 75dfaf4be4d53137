package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation was refused (bad credentials, expired session, route denied)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, store unavailable)
)

// ExitError carries the exit code a command should end the process with.
// An empty Message means the command already reported the outcome.
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Output renders command results as text or JSON.
type Output struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the JSON shape of every command result.
type Response struct {
	Status  string `json:"status"` // "ok" or "error"
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes data. In text mode only text is printed.
func (o *Output) Success(data any, text string) error {
	if o.Format == "json" {
		return json.NewEncoder(o.Writer).Encode(Response{Status: "ok", Message: text, Data: data})
	}
	_, err := fmt.Fprintln(o.Writer, text)
	return err
}

// Fail reports a refused operation and returns an ExitError that main will
// not print again.
func (o *Output) Fail(message string, data any) error {
	if o.Format == "json" {
		if err := json.NewEncoder(o.Writer).Encode(Response{Status: "error", Message: message, Data: data}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(o.Writer, message)
	}
	return NewExitError(ExitFailure, "")
}

// Debugf writes diagnostics in verbose mode only.
func (o *Output) Debugf(format string, args ...any) {
	if !o.Verbose {
		return
	}
	w := o.ErrWriter
	if w == nil {
		w = o.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
