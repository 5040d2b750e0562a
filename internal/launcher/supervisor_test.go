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

package launcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/launcher/internal/version"
	launchererrors "github.com/tombee/launcher/pkg/errors"
)

func newTestSupervisor(cfg LaunchConfig) (*Supervisor, *fakeProcess, *recorder) {
	rec := &recorder{}
	p := &fakeProcess{rec: rec, pidOnStart: 77}
	if cfg.Supported == (version.Triplet{}) {
		cfg.Supported = version.MustParse("0.32.5")
	}
	return NewSupervisor(p, cfg, nil, nil), p, rec
}

func TestLaunchExternalProcess_Methods(t *testing.T) {
	tests := []struct {
		name string
		cfg  LaunchConfig
		want []string
	}{
		{
			name: "command preferred over uri",
			cfg:  LaunchConfig{LaunchCommand: "/usr/bin/beamng", LaunchURI: "steam://rungameid/284160"},
			want: []string{"start:/usr/bin/beamng"},
		},
		{
			name: "uri",
			cfg:  LaunchConfig{LaunchURI: "steam://rungameid/284160"},
			want: []string{"open:steam://rungameid/284160"},
		},
		{
			name: "manual",
			cfg:  LaunchConfig{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, rec := newTestSupervisor(tt.cfg)
			require.NoError(t, s.LaunchExternalProcess("0.32.5"))
			assert.Equal(t, tt.want, rec.all())
		})
	}
}

func TestLaunchExternalProcess_PatchSkewOnlyWarns(t *testing.T) {
	s, _, rec := newTestSupervisor(LaunchConfig{LaunchURI: "steam://x"})
	require.NoError(t, s.LaunchExternalProcess("0.31.0"))
	assert.Equal(t, []string{"open:steam://x"}, rec.all())
}

func TestLaunchExternalProcess_BadVersion(t *testing.T) {
	s, _, rec := newTestSupervisor(LaunchConfig{LaunchURI: "steam://x"})
	err := s.LaunchExternalProcess("zero.one")
	assert.True(t, launchererrors.IsShutdown(err))
	assert.Empty(t, rec.all())
}

func TestTerminateIfGame(t *testing.T) {
	t.Run("same pid is terminated", func(t *testing.T) {
		s, p, rec := newTestSupervisor(LaunchConfig{})
		p.setPID(100)
		s.setPID(100)

		assert.Equal(t, 100, s.terminateIfGame())
		assert.Equal(t, []string{"terminate"}, rec.all())
		assert.Zero(t, s.PID())
	})

	t.Run("reused pid is left alone", func(t *testing.T) {
		s, p, rec := newTestSupervisor(LaunchConfig{})
		p.setPID(200)
		s.setPID(100)

		assert.Zero(t, s.terminateIfGame())
		assert.Empty(t, rec.all())
		assert.Zero(t, s.PID())
	})

	t.Run("nothing supervised", func(t *testing.T) {
		s, p, rec := newTestSupervisor(LaunchConfig{})
		p.setPID(100)

		assert.Zero(t, s.terminateIfGame())
		assert.Empty(t, rec.all())
	})

	t.Run("live pid whose lookup fails is terminated", func(t *testing.T) {
		s, p, rec := newTestSupervisor(LaunchConfig{})
		p.setPID(100)
		s.setPID(100)
		p.setLookupErr(errors.New("snapshot failed"))

		assert.Equal(t, 100, s.terminateIfGame())
		assert.Equal(t, []string{"terminate"}, rec.all())
	})

	t.Run("only once", func(t *testing.T) {
		s, p, rec := newTestSupervisor(LaunchConfig{})
		p.setPID(100)
		s.setPID(100)

		s.terminateIfGame()
		p.setPID(100)
		assert.Zero(t, s.terminateIfGame())
		assert.Equal(t, []string{"terminate"}, rec.all())
	})
}

func TestLifecycleStateString(t *testing.T) {
	assert.Equal(t, "waiting_for_process", StateWaitingForProcess.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
