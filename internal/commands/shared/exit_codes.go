// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	cperrors "github.com/tombee/cyclepoint/pkg/errors"
)

// Exit codes for cyclepoint commands
const (
	ExitSuccess      = 0
	ExitFailed       = 1
	ExitInvalidSuite = 2
	ExitStalled      = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for failed commands
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitFailed, Message: msg, Cause: cause}
}

// NewInvalidSuiteError creates an error for suites or config that do not
// load
func NewInvalidSuiteError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidSuite, Message: msg, Cause: cause}
}

// NewStalledError creates an error for simulations that stall
func NewStalledError(cause error) *ExitError {
	return &ExitError{Code: ExitStalled, Message: "simulation stalled", Cause: cause}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var stall *cperrors.StallError
	if errors.As(err, &stall) {
		return ExitStalled
	}
	var cfgErr *cperrors.ConfigError
	var valErr *cperrors.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		return ExitInvalidSuite
	}
	return ExitFailed
}

// HandleExitError prints err and exits with its exit code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes err and, when the chain carries one, its suggestion. An ExitError with no message prints nothing, since
// the command has already reported.
func PrintError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Message == "" && exitErr.Cause == nil {
		return
	}
	fmt.Fprintln(w, "Error:", err.Error())

	if hint := cperrors.Suggestion(err); hint != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", hint)
	}
}
