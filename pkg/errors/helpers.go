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

package errors

import (
	"errors"
	"fmt"
)

// Wrap prefixes err with message, keeping it in the chain. A nil err stays
// nil.
//
//	if err := st.SavePrerequisites(ctx, id, records); err != nil {
//	    return errors.Wrap(err, "persisting prerequisites")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Suggestion returns the hint attached to the first ValidationError in
// err's chain, or a pointer at the offending key for a ConfigError. It is
// empty when neither is present.
func Suggestion(err error) string {
	var val *ValidationError
	if errors.As(err, &val) && val.Suggestion != "" {
		return val.Suggestion
	}
	var cfg *ConfigError
	if errors.As(err, &cfg) && cfg.Key != "" {
		return fmt.Sprintf("check %q in the config file or its environment override", cfg.Key)
	}
	return ""
}
