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

package secrets

import (
	"context"
	"fmt"
)

// StaticBackendPriority is the lowest; config values are the fallback.
const StaticBackendPriority = 10

// StaticBackend serves fixed values, typically from the config file.
type StaticBackend struct {
	values map[string]string
}

// NewStaticBackend copies values, ignoring empty ones.
func NewStaticBackend(values map[string]string) *StaticBackend {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			copied[k] = v
		}
	}
	return &StaticBackend{values: copied}
}

// Name returns "config".
func (s *StaticBackend) Name() string {
	return "config"
}

// Get returns the stored value.
func (s *StaticBackend) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}

// Set returns ErrReadOnlyBackend.
func (s *StaticBackend) Set(context.Context, string, string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend.
func (s *StaticBackend) Delete(context.Context, string) error {
	return ErrReadOnlyBackend
}

// Available is always true.
func (s *StaticBackend) Available() bool {
	return true
}

// Priority returns StaticBackendPriority.
func (s *StaticBackend) Priority() int {
	return StaticBackendPriority
}
