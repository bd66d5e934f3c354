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

package trigger

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedExpression is matched by every *MalformedExpressionError.
	ErrMalformedExpression = errors.New("malformed trigger expression")

	// ErrTriggerExpression is matched by every *TriggerExpressionError.
	ErrTriggerExpression = errors.New("invalid trigger expression")
)

// MalformedExpressionError reports unbalanced parentheses.
type MalformedExpressionError struct {
	// Expression is the text that failed to parse.
	Expression string

	// Reason describes the imbalance.
	Reason string
}

// Error implements the error interface.
func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedExpression, e.Reason, e.Expression)
}

// Unwrap returns ErrMalformedExpression.
func (e *MalformedExpressionError) Unwrap() error {
	return ErrMalformedExpression
}

// TriggerExpressionError reports a structurally invalid expression or an
// operand that does not resolve to a known task output.
type TriggerExpressionError struct {
	// Expression is the (sub-)expression being built.
	Expression string

	// Token is the offending operand or operator, if any.
	Token string

	// Cause is the underlying failure: a resolver error or the error
	// raised while building a nested group.
	Cause error
}

// Error implements the error interface.
func (e *TriggerExpressionError) Error() string {
	msg := fmt.Sprintf("unexpected %q in trigger expression: %s", e.Token, e.Expression)
	if e.Token == "" {
		msg = fmt.Sprintf("%s: %s", ErrTriggerExpression, e.Expression)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns ErrTriggerExpression and the cause.
func (e *TriggerExpressionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTriggerExpression}
	}
	return []error{ErrTriggerExpression, e.Cause}
}
