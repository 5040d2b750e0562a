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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Triplet
		wantErr bool
	}{
		{input: "0.32.5", want: Triplet{0, 32, 5}},
		{input: "0.32.5.0", want: Triplet{0, 32, 5}},
		{input: "1.2", want: Triplet{1, 2, 0}},
		{input: "3", want: Triplet{3, 0, 0}},
		{input: " 1.0.0 ", want: Triplet{1, 0, 0}},
		{input: "", wantErr: true},
		{input: "1.x.0", wantErr: true},
		{input: "1.-2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTriplet_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.1.0", "1.0.9", 1},
		{"0.9.9", "1.0.0", -1},
		{"2.0", "1.99.99", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.a).Compare(MustParse(tt.b)))
			assert.Equal(t, -tt.want, MustParse(tt.b).Compare(MustParse(tt.a)))
		})
	}
}

func TestTriplet_MajorMinor(t *testing.T) {
	assert.Equal(t, "0.32", MustParse("0.32.5.0").MajorMinor())
	assert.Equal(t, "0.32.5", MustParse("0.32.5.0").String())
}

func TestCheck(t *testing.T) {
	supported := MustParse("1.2.0")

	tests := []struct {
		name      string
		installed string
		want      Verdict
		message   string
	}{
		{name: "older major is fatal", installed: "0.9", want: FatalOlder,
			message: "BeamNG V0.9 not supported, please update and launch the new update!"},
		{name: "newer major is fatal", installed: "2.0", want: FatalNewer,
			message: "BeamNG V2.0 not yet supported, please wait until we update BeamMP!"},
		{name: "older minor warns", installed: "1.0", want: WarnOlder,
			message: "BeamNG V1.0 is slightly older than recommended, this might cause issues!"},
		{name: "newer minor warns", installed: "1.5", want: WarnNewer,
			message: "BeamNG V1.5 is slightly newer than recommended, this might cause issues!"},
		{name: "equal is silent", installed: "1.2.0", want: OK},
		{name: "newer patch warns", installed: "1.2.7.1", want: WarnNewer,
			message: "BeamNG V1.2.7.1 is slightly newer than recommended, this might cause issues!"},
		{name: "extra fields are ignored", installed: "1.2.0.9", want: OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Check(tt.installed, supported)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Verdict)
			assert.Equal(t, tt.message, res.Message())
			assert.Equal(t, tt.want.Fatal(), res.Verdict.Fatal())
		})
	}
}

func TestCheck_InvalidVersion(t *testing.T) {
	_, err := Check("not-a-version", MustParse("1.0"))
	assert.Error(t, err)
}

func TestVerdict_Flags(t *testing.T) {
	assert.True(t, FatalNewer.Fatal())
	assert.True(t, FatalOlder.Fatal())
	assert.False(t, WarnNewer.Fatal())
	assert.True(t, WarnOlder.Warning())
	assert.False(t, OK.Warning())
	assert.Equal(t, "warn_newer", WarnNewer.String())
}
