// Package exit describes how the command terminates: what to print, where,
// and with which status code.
package exit

import (
	"fmt"
	"io"
	"os"
)

const (
	CodeOK = 0
	// CodeFailure means no input could be shown.
	CodeFailure = 1
	// CodeUsage means the command line or configuration was rejected.
	CodeUsage = 2
	// CodePartial means some inputs loaded and some failed.
	CodePartial = 3
)

// Result holds the output destination and exit code for program termination.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Print writes the message to the configured output.
func (r *Result) Print() {
	fmt.Fprint(r.Output, r.Message)
}

// Success prints message to stdout and exits with CodeOK.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: CodeOK,
		Message:  message,
	}
}

// Error prints message to stderr and exits with CodeFailure.
func Error(message string) *Result {
	return Failure(CodeFailure, message)
}

func Errorf(format string, a ...any) *Result {
	return Error(fmt.Sprintf(format, a...))
}

// Usagef reports a rejected command line.
func Usagef(format string, a ...any) *Result {
	return Failure(CodeUsage, fmt.Sprintf(format, a...))
}

// Failure prints message to stderr with an explicit code.
func Failure(code int, message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: code,
		Message:  message,
	}
}

// ForLoads picks the exit code after loading total inputs of which failed
// could not be read.
func ForLoads(total, failed int) int {
	switch {
	case failed == 0:
		return CodeOK
	case failed < total:
		return CodePartial
	default:
		return CodeFailure
	}
}
