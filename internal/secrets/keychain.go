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
	"fmt"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeychainBackendPriority places the keychain below the environment.
const KeychainBackendPriority = 50

// KeychainService is the service name entries are stored under.
const KeychainService = "launcher"

// checkKey is looked up once to find out whether the keychain answers.
const checkKey = "__launcher_check__"

// unavailableHints are fragments of the errors platforms return for a
// locked or unreachable keychain.
var unavailableHints = []string{
	"locked",
	"cannot access",
	"permission denied",
	"failed to unlock",
	"user interaction required",
	"secret service",
	"dbus",
	"user canceled",
}

// KeychainBackend keeps secrets in the OS credential store (macOS Keychain,
// Secret Service on Linux, Windows Credential Manager). The store is checked
// on first use; a locked or missing store makes the backend unavailable
// instead of failing the caller.
type KeychainBackend struct {
	service string

	check     sync.Once
	available bool
}

// NewKeychainBackend returns a backend for KeychainService.
func NewKeychainBackend() *KeychainBackend {
	return &KeychainBackend{service: KeychainService}
}

func (k *KeychainBackend) Name() string { return "keychain" }

func (k *KeychainBackend) Priority() int { return KeychainBackendPriority }

// Available reports whether the credential store answered the first lookup.
func (k *KeychainBackend) Available() bool {
	k.check.Do(func() {
		_, err := keyring.Get(k.service, checkKey)
		k.available = err == nil || errors.Is(err, keyring.ErrNotFound)
	})
	return k.available
}

func (k *KeychainBackend) Get(_ context.Context, key string) (string, error) {
	var value string
	err := k.do(key, func() (err error) {
		value, err = keyring.Get(k.service, key)
		return err
	})
	return value, err
}

func (k *KeychainBackend) Set(_ context.Context, key, value string) error {
	return k.do(key, func() error { return keyring.Set(k.service, key, value) })
}

func (k *KeychainBackend) Delete(_ context.Context, key string) error {
	return k.do(key, func() error { return keyring.Delete(k.service, key) })
}

// do runs op against the store and maps its error onto the package's
// sentinel errors.
func (k *KeychainBackend) do(key string, op func() error) error {
	if !k.Available() {
		return fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}

	err := op()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	case storeUnavailable(err):
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	default:
		return fmt.Errorf("keychain %s: %w", key, err)
	}
}

func storeUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, hint := range unavailableHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
