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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEnvBackend(t *testing.T) {
	t.Setenv("LAUNCHER_SECRET_RELAY_TOKEN", "")
	t.Setenv(RelayTokenEnv, "")
	ctx := context.Background()
	b := NewEnvBackend()

	_, err := b.Get(ctx, RelayTokenKey)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	t.Setenv(RelayTokenEnv, "alias")
	v, err := b.Get(ctx, RelayTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "alias", v)

	t.Setenv("LAUNCHER_SECRET_RELAY_TOKEN", "prefixed")
	v, err = b.Get(ctx, RelayTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "prefixed", v, "prefixed variable wins over alias")

	assert.ErrorIs(t, b.Set(ctx, "k", "v"), ErrReadOnlyBackend)
	assert.ErrorIs(t, b.Delete(ctx, "k"), ErrReadOnlyBackend)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "LAUNCHER_SECRET_RELAY_TOKEN", envKey("relay.token"))
	assert.Equal(t, "LAUNCHER_SECRET_RELAY_TOKEN", envKey("relay-token"))
	assert.Equal(t, "LAUNCHER_SECRET_RELAY_TOKEN", envKey(RelayTokenKey))
}

func TestKeychainBackend(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	b := NewKeychainBackend()
	require.True(t, b.Available())

	_, err := b.Get(ctx, RelayTokenKey)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, b.Set(ctx, RelayTokenKey, "stored"))
	v, err := b.Get(ctx, RelayTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "stored", v)

	require.NoError(t, b.Delete(ctx, RelayTokenKey))
	assert.ErrorIs(t, b.Delete(ctx, RelayTokenKey), ErrSecretNotFound)
}

func TestKeychainBackend_Unavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: connection refused"))
	defer keyring.MockInit()

	b := NewKeychainBackend()
	assert.False(t, b.Available())

	_, err := b.Get(context.Background(), RelayTokenKey)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestResolver_PriorityOrder(t *testing.T) {
	keyring.MockInit()
	t.Setenv("LAUNCHER_SECRET_RELAY_TOKEN", "")
	t.Setenv(RelayTokenEnv, "")
	ctx := context.Background()

	keychain := NewKeychainBackend()
	require.NoError(t, keychain.Set(ctx, RelayTokenKey, "from-keychain"))

	r := NewResolver(NewStaticBackend(map[string]string{RelayTokenKey: "from-config"}), keychain, NewEnvBackend())
	names := []string{}
	for _, b := range r.Backends() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"env", "keychain", "config"}, names)

	v, err := r.Get(ctx, RelayTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", v)

	t.Setenv(RelayTokenEnv, "from-env")
	v, err = r.Get(ctx, RelayTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestResolver_SetAndDelete(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	r := NewResolver(NewEnvBackend(), NewKeychainBackend(), NewStaticBackend(nil))
	require.NoError(t, r.Set(ctx, "other", "value"))

	v, err := NewKeychainBackend().Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	require.NoError(t, r.Delete(ctx, "other"))
	assert.ErrorIs(t, r.Delete(ctx, "other"), ErrSecretNotFound)

	readOnly := NewResolver(NewEnvBackend())
	assert.ErrorIs(t, readOnly.Set(ctx, "other", "value"), ErrBackendUnavailable)
}

func TestResolver_NoBackends(t *testing.T) {
	_, err := NewResolver().Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestRelayToken(t *testing.T) {
	keyring.MockInit()
	t.Setenv("LAUNCHER_SECRET_RELAY_TOKEN", "")
	t.Setenv(RelayTokenEnv, "")
	ctx := context.Background()

	token, err := RelayToken(ctx, "", true)
	require.NoError(t, err)
	assert.Empty(t, token, "missing token is not an error")

	token, err = RelayToken(ctx, "cfg", true)
	require.NoError(t, err)
	assert.Equal(t, "cfg", token)

	require.NoError(t, NewKeychainBackend().Set(ctx, RelayTokenKey, "kc"))
	token, err = RelayToken(ctx, "cfg", true)
	require.NoError(t, err)
	assert.Equal(t, "kc", token)

	token, err = RelayToken(ctx, "cfg", false)
	require.NoError(t, err)
	assert.Equal(t, "cfg", token, "keychain skipped when disabled")
}
