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

package status

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/launcher/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.IPC.Dir = dir
	cfg.Lifecycle.PIDFile = filepath.Join(dir, "launcher.pid")
	return cfg
}

func TestCollect(t *testing.T) {
	alive := func(pid int) bool { return pid == 4242 }

	t.Run("no pid file", func(t *testing.T) {
		info := Collect(testConfig(t), alive)
		assert.False(t, info.Running)
		assert.False(t, info.Stale)
		assert.Zero(t, info.PID)
	})

	t.Run("running", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.WriteFile(cfg.Lifecycle.PIDFile, []byte("4242\n"), 0o600))

		info := Collect(cfg, alive)
		assert.True(t, info.Running)
		assert.Equal(t, 4242, info.PID)
		assert.Equal(t, filepath.Join(cfg.IPC.Dir, cfg.IPC.Inbound+".sock"), info.Inbound)
	})

	t.Run("stale", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.WriteFile(cfg.Lifecycle.PIDFile, []byte("17\n"), 0o600))

		info := Collect(cfg, alive)
		assert.False(t, info.Running)
		assert.True(t, info.Stale)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Lifecycle.PIDFile = ""
		assert.False(t, Collect(cfg, alive).Running)
	})
}

func TestRender(t *testing.T) {
	info := Info{Running: true, PID: 4242, PIDFile: "/tmp/launcher.pid", Inbound: "/nope/in.sock", Outbound: "/nope/out.sock"}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, info, false))
	assert.Contains(t, buf.String(), "launcher is running (pid 4242)")
	assert.Contains(t, buf.String(), "/nope/in.sock (absent)")

	buf.Reset()
	require.NoError(t, render(&buf, info, true))
	var decoded Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, info, decoded)
}
