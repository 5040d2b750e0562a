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

// Package launcher runs one supervised game session.
//
// An Orchestrator discovers the installation, launches the game, waits
// for its process, relays IPC traffic while it runs and tears everything
// down exactly once through the shutdown coordinator. Teardown closes the
// network relay, joins the presence and IPC goroutines, resets the
// multiplayer mod directory and finally terminates the game if it is
// still the process the launcher found.
package launcher
