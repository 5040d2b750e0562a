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

/*
Package cli provides the root command for the launcher's CLI.

Individual commands live in the internal/commands subpackages; main wires
them onto the root:

	launcher
	├── run       Launch the game and relay traffic (default)
	├── status    Report whether a launcher is running
	├── token     Manage the relay token in the keychain
	└── version   Show version

# Exit Codes

  - 0: Success
  - 1: Fatal condition during the session (already logged)
  - 2: Configuration could not be loaded
  - 3: status found no running launcher
*/
package cli
