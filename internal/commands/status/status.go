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

// Package status reports whether a launcher session is running.
package status

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/launcher/internal/commands/shared"
	"github.com/tombee/launcher/internal/config"
	"github.com/tombee/launcher/internal/ipc"
	"github.com/tombee/launcher/internal/lifecycle"
)

// Info is the status report.
type Info struct {
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	PIDFile  string `json:"pid_file"`
	Stale    bool   `json:"stale,omitempty"`
	Inbound  string `json:"inbound_socket"`
	Outbound string `json:"outbound_socket"`
	EventLog string `json:"event_log,omitempty"`
}

// NewCommand creates the status command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a launcher is running",
		Long: `Read the launcher PID file and report whether the launcher that wrote
it is still alive. Exits with status 3 when no launcher is running.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return shared.NewConfigError("failed to load configuration", err)
	}

	info := Collect(cfg, lifecycle.IsProcessRunning)
	if err := render(cmd.OutOrStdout(), info, shared.GetJSON()); err != nil {
		return err
	}
	if !info.Running {
		return shared.NewNotRunningError("launcher is not running")
	}
	return nil
}

// Collect builds the report from cfg. alive reports whether a PID
// belongs to a live process.
func Collect(cfg *config.Config, alive func(int) bool) Info {
	info := Info{
		PIDFile:  cfg.Lifecycle.PIDFile,
		Inbound:  ipc.SocketPath(cfg.IPC.Dir, cfg.IPC.Inbound),
		Outbound: ipc.SocketPath(cfg.IPC.Dir, cfg.IPC.Outbound),
		EventLog: cfg.Lifecycle.EventLog,
	}
	if info.PIDFile == "" {
		return info
	}

	m := lifecycle.NewPIDFileManager(info.PIDFile)
	if !m.Exists() {
		return info
	}
	pid, err := m.Read()
	if err != nil {
		return info
	}
	info.PID = pid
	info.Running = alive(pid)
	info.Stale = !info.Running
	return info
}

func render(w io.Writer, info Info, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	switch {
	case info.Running:
		fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("launcher is running (pid %d)", info.PID)))
	case info.Stale:
		fmt.Fprintln(w, shared.RenderWarn(fmt.Sprintf("launcher is not running (stale pid %d)", info.PID)))
	default:
		fmt.Fprintln(w, shared.RenderError("launcher is not running"))
	}

	fmt.Fprintln(w, shared.RenderField("pid file", orNone(info.PIDFile)))
	fmt.Fprintln(w, shared.RenderField("inbound", socketState(info.Inbound)))
	fmt.Fprintln(w, shared.RenderField("outbound", socketState(info.Outbound)))
	if info.EventLog != "" {
		fmt.Fprintln(w, shared.RenderField("event log", info.EventLog))
	}
	return nil
}

func socketState(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path + " (absent)"
	}
	return path
}

func orNone(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}
