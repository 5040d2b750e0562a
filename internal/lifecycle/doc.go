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
Package lifecycle wraps the operating-system side of supervising the game.

It provides process discovery by executable name, liveness checks,
forced termination, detached launching, the launcher's own PID file, and
lifecycle event logging.

# Process Operations

Processes are found by executable name. Discovery is a pure query:

	pid, err := lifecycle.FindPID("BeamNG.drive.x64.exe")
	if err != nil {
	    // Enumeration failed
	}
	if pid == 0 {
	    // Not running
	}

Termination acquires a termination-capable handle only for the duration
of the call and always releases it:

	if err := lifecycle.Terminate(pid); err != nil {
	    // Handle error
	}

# Launching

The game is started either through a URI handed to the platform opener
(xdg-open, open, rundll32) or by running an executable directly. Both
paths spawn a detached child that outlives the launcher:

	spawner := lifecycle.NewSpawner()
	if err := spawner.OpenURI("steam://rungameid/284160"); err != nil {
	    // Handle error
	}

# PID File Management

The launcher holds an exclusively locked PID file while it runs so a
second instance refuses to start:

	manager := lifecycle.NewPIDFileManager("/path/to/launcher.pid")
	if _, err := manager.CreateReplacingStale(os.Getpid()); err != nil {
	    // Another launcher is running
	}
	defer manager.Remove()

# Lifecycle Logging

Lifecycle events are appended as JSON lines for later inspection:

	events := lifecycle.NewLifecycleLogger("/path/to/lifecycle.log")
	events.LogGameFound(pid)
*/
package lifecycle
