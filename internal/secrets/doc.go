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

// Package secrets resolves the credentials the launcher needs, currently
// the relay server token.
//
// Backends are queried in priority order:
//
//   - env (100): LAUNCHER_SECRET_<KEY>, plus LAUNCHER_RELAY_TOKEN for the
//     relay token
//   - keychain (50): the system keychain under the "launcher" service
//   - config (10): values read from the configuration file
//
// The keychain is the only writable backend; "launcher token set" stores
// the relay token there.
package secrets
