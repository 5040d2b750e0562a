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
	"errors"
)

// RelayTokenKey names the relay server token.
const RelayTokenKey = "relay_token"

var (
	// ErrSecretNotFound is returned when a backend does not hold a key.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrBackendUnavailable is returned when a backend cannot be used in
	// the current environment.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrReadOnlyBackend is returned when writing to a read-only backend.
	ErrReadOnlyBackend = errors.New("backend is read-only")
)

// SecretBackend is one place secrets can live.
type SecretBackend interface {
	// Name returns the backend identifier.
	Name() string

	// Get returns the value for key or ErrSecretNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. Read-only backends return ErrReadOnlyBackend.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Read-only backends return ErrReadOnlyBackend.
	Delete(ctx context.Context, key string) error

	// Available reports whether the backend can be used.
	Available() bool

	// Priority orders backends; higher is checked first.
	Priority() int
}
