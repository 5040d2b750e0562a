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

//go:build !windows

package discovery

// RegistryKey is the game's settings key under HKEY_CURRENT_USER.
const RegistryKey = `Software\BeamNG\BeamNG.drive`

// RegistrySource is only available on Windows.
type RegistrySource struct{}

// Describe implements Source.
func (RegistrySource) Describe() string {
	return "registry key " + RegistryKey
}

// Lookup always fails off Windows.
func (RegistrySource) Lookup() (Record, error) {
	return Record{}, ErrUnsupported
}
