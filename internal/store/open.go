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

package store

import (
	"fmt"

	"github.com/tombee/cyclepoint/internal/config"
	cperrors "github.com/tombee/cyclepoint/pkg/errors"
)

// Open returns the backend named by cfg.Backend.
func Open(cfg config.StoreConfig) (Store, error) {
	open, ok := openers[cfg.Backend]
	if !ok {
		return nil, &cperrors.ConfigError{
			Key:    "store.backend",
			Reason: fmt.Sprintf("backend %q is not available", cfg.Backend),
		}
	}
	return open(cfg)
}
