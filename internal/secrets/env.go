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
	"os"
	"strings"
)

const (
	// EnvBackendPriority lets the environment override stored secrets.
	EnvBackendPriority = 100

	envSecretPrefix = "LAUNCHER_SECRET_"

	// RelayTokenEnv is the documented variable for the relay token.
	RelayTokenEnv = "LAUNCHER_RELAY_TOKEN"
)

// EnvBackend reads secrets from environment variables. It is read-only.
type EnvBackend struct {
	lookup func(string) string
}

// NewEnvBackend creates a backend over the process environment.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.Getenv}
}

// Name returns "env".
func (e *EnvBackend) Name() string {
	return "env"
}

// Get checks LAUNCHER_SECRET_<KEY> first and then any alias for key.
func (e *EnvBackend) Get(_ context.Context, key string) (string, error) {
	if value := e.lookup(envKey(key)); value != "" {
		return value, nil
	}
	if alias := envAlias(key); alias != "" {
		if value := e.lookup(alias); value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: environment variable not set", ErrSecretNotFound)
}

// Set returns ErrReadOnlyBackend.
func (e *EnvBackend) Set(context.Context, string, string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend.
func (e *EnvBackend) Delete(context.Context, string) error {
	return ErrReadOnlyBackend
}

// Available is always true.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns EnvBackendPriority.
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}

// envKey turns "relay.token" or "relay-token" into LAUNCHER_SECRET_RELAY_TOKEN.
func envKey(key string) string {
	normalized := strings.NewReplacer(".", "_", "-", "_").Replace(key)
	return envSecretPrefix + strings.ToUpper(normalized)
}

func envAlias(key string) string {
	if key == RelayTokenKey {
		return RelayTokenEnv
	}
	return ""
}
