package main

import (
	"errors"
	"fmt"

	"github.com/cwbudde/gifsqueeze/internal/optimize"
)

// Exit codes reported to the shell.
const (
	exitSuccess       = 0
	exitUnsatisfiable = 1
	exitUsage         = 2
	exitMissingTools  = 3
)

// usageError marks missing or invalid arguments, including flag parse
// failures surfaced by cobra.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

// toolError marks a required external tool missing from PATH.
type toolError struct {
	tool string
}

func (e *toolError) Error() string {
	return fmt.Sprintf("%s not found on PATH", e.tool)
}

// exitCode maps the error taxonomy onto the documented exit codes.
// Fatal runtime failures (render, probe, I/O) share the generic nonzero
// code with unsatisfiable constraints but keep their distinct messages.
func exitCode(err error) int {
	var usage *usageError
	var bounds *optimize.BoundsError
	var tool *toolError

	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &tool):
		return exitMissingTools
	case errors.As(err, &usage), errors.As(err, &bounds):
		return exitUsage
	default:
		return exitUnsatisfiable
	}
}
