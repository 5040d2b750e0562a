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

package shared

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Status output styles
var (
	StatusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	StatusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	Muted       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
)

// Symbols for status indicators
const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
)

// paint applies style only when stdout is a terminal.
func paint(style lipgloss.Style, text string) string {
	if !IsTerminal() {
		return text
	}
	return style.Render(text)
}

// RenderOK renders a success line with a green checkmark
func RenderOK(msg string) string {
	return paint(StatusOK, SymbolOK) + " " + msg
}

// RenderWarn renders a warning line
func RenderWarn(msg string) string {
	return paint(StatusWarn, SymbolWarn) + " " + msg
}

// RenderError renders an error line with a red cross
func RenderError(msg string) string {
	return paint(StatusError, SymbolError) + " " + msg
}

// RenderField renders an indented "label: value" line with a dim label.
func RenderField(label string, value any) string {
	return fmt.Sprintf("  %s %v", paint(Muted, label+":"), value)
}
