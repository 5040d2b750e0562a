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

package discovery

import (
	"errors"

	"golang.org/x/sys/windows/registry"

	launchererrors "github.com/tombee/launcher/pkg/errors"
)

// RegistryKey is the game's settings key under HKEY_CURRENT_USER.
const RegistryKey = `Software\BeamNG\BeamNG.drive`

// RegistrySource reads the installation record the game writes on first
// launch.
type RegistrySource struct{}

// Describe implements Source.
func (RegistrySource) Describe() string {
	return "registry key " + RegistryKey
}

// Lookup implements Source. Missing values come back empty.
func (RegistrySource) Lookup() (Record, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, RegistryKey, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return Record{}, &launchererrors.NotFoundError{Resource: "registry key", ID: RegistryKey}
	}
	if err != nil {
		return Record{}, err
	}
	defer k.Close()

	var rec Record
	for name, dst := range map[string]*string{
		"rootpath":          &rec.RootPath,
		"version":           &rec.Version,
		"userpath_override": &rec.UserPathOverride,
	} {
		v, _, err := k.GetStringValue(name)
		if err != nil {
			if errors.Is(err, registry.ErrNotExist) {
				continue
			}
			return Record{}, err
		}
		*dst = v
	}
	return rec, nil
}
