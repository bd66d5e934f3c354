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
	"strings"

	cperrors "github.com/tombee/cyclepoint/pkg/errors"
	"github.com/tombee/cyclepoint/pkg/trigger"
)

// Error codes for structured JSON output
const (
	// Suite errors (E001-E099)
	ErrorCodeMissingField     = "E001" // Missing required field
	ErrorCodeInvalidYAML      = "E002" // Invalid YAML syntax
	ErrorCodeInvalidSuite     = "E003" // Suite constraint violation
	ErrorCodeMalformedTrigger = "E004" // Unbalanced parentheses
	ErrorCodeInvalidTrigger   = "E005" // Operator or operand in the wrong place

	// Run errors (E100-E199)
	ErrorCodeStalled   = "E101" // Simulation stalled
	ErrorCodeRunFailed = "E102" // Simulation failed

	// Configuration errors (E200-E299)
	ErrorCodeInvalidConfig = "E201" // Invalid configuration

	// Input errors (E300-E399)
	ErrorCodeInvalidInput = "E302" // Invalid argument format
	ErrorCodeFileNotFound = "E303" // File not found

	// Resource errors (E400-E499)
	ErrorCodeNotFound = "E401" // Resource not found
)

// ErrorCodeFor classifies err for JSON output.
func ErrorCodeFor(err error) string {
	var (
		stall *cperrors.StallError
		cfg   *cperrors.ConfigError
		nf    *cperrors.NotFoundError
		val   *cperrors.ValidationError
	)
	switch {
	case errors.Is(err, trigger.ErrMalformedExpression):
		return ErrorCodeMalformedTrigger
	case errors.Is(err, trigger.ErrTriggerExpression):
		return ErrorCodeInvalidTrigger
	case errors.As(err, &stall):
		return ErrorCodeStalled
	case errors.As(err, &cfg):
		return ErrorCodeInvalidConfig
	case errors.As(err, &nf):
		return ErrorCodeNotFound
	case errors.As(err, &val):
		if strings.HasSuffix(val.Message, "is required") {
			return ErrorCodeMissingField
		}
		if strings.Contains(val.Message, "yaml:") {
			return ErrorCodeInvalidYAML
		}
		return ErrorCodeInvalidSuite
	case strings.Contains(err.Error(), "yaml:"):
		return ErrorCodeInvalidYAML
	}
	return ErrorCodeRunFailed
}

// JSONErrorFor builds the structured form of err.
func JSONErrorFor(err error) JSONError {
	je := JSONError{Code: ErrorCodeFor(err), Message: err.Error(), Suggestion: cperrors.Suggestion(err)}
	var val *cperrors.ValidationError
	if errors.As(err, &val) {
		je.Field = val.Field
	}
	var cfg *cperrors.ConfigError
	if errors.As(err, &cfg) {
		je.Field = cfg.Key
	}
	return je
}
