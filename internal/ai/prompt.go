package ai

import (
	"fmt"
	"strings"

	"hyprpilot/internal/hypr"
	"hyprpilot/internal/store"
	"hyprpilot/internal/telemetry"
)

// ContextBundle is everything the model sees beside the query itself.
type ContextBundle struct {
	Desktop     *hypr.Snapshot
	System      *telemetry.Snapshot
	Keybindings []store.Keybinding
	Recent      []store.CommandRecord
	Screenshot  []byte
}

const (
	maxPromptKeybindings = 20
	maxPromptCommands    = 5
)

const systemPrompt = `You are a Hyprland desktop automation assistant. You control the user's
Linux desktop by emitting a JSON action plan. Reply with ONLY a JSON object
of the form:
{"explanation": "Brief explanation of what you're doing and why",
 "actions": [{"type": "...", "params": {...}}, ...]}
and no other text.

Supported action types and their params:
- keyboard: {"keys": "Super+Return" or literal text, "delay": seconds}
- mouse_move: {"x": int, "y": int, "relative": bool}
- mouse_click: {"button": "left"|"right"|"middle", "clicks": int}
- execute: {"command": "shell command", "terminal": bool, "wait": bool}
- hyprland_dispatch: {"dispatcher": "name", "args": ["..."]}
- focus_window: {"identifier": "class or title substring", "by": "class"|"title"}
- screenshot: {"selection": bool, "save": bool, "path": "optional ~/path.png"}
- file_write: {"path": "~/...", "content": "...", "append": bool}
- file_read: {"path": "~/..."}
- audio_control: {"action": "volume_up"|"volume_down"|"mute", "amount": int}
- brightness: {"action": "set"|"increase"|"decrease", "value": int}
- process_control: {"action": "list"|"kill", "name": "process name"}

Actions run in order. Prefer the smallest plan that satisfies the request.
File paths must stay inside the user's home directory.`

// buildPrompt renders the query with the desktop context the model
// should ground its plan in.
func buildPrompt(query string, b ContextBundle) string {
	var sb strings.Builder

	sb.WriteString("User request: ")
	sb.WriteString(query)
	sb.WriteString("\n\n## Current desktop\n")

	if b.Desktop != nil {
		if b.Desktop.ActiveWindow.Title != "" {
			fmt.Fprintf(&sb, "Active window: %s (%s)\n", b.Desktop.ActiveWindow.Title, b.Desktop.ActiveWindow.Class)
		}
		if b.Desktop.Workspace.ID != 0 || b.Desktop.Workspace.Name != "" {
			fmt.Fprintf(&sb, "Workspace: %d (%s)\n", b.Desktop.Workspace.ID, b.Desktop.Workspace.Name)
		}
		if len(b.Desktop.Clients) > 0 {
			sb.WriteString("Open windows:\n")
			for _, w := range b.Desktop.Clients {
				fmt.Fprintf(&sb, "  - [ws %d] %s: %s\n", w.Workspace.ID, w.Class, w.Title)
			}
		}
	}

	if b.System != nil {
		fmt.Fprintf(&sb, "\n## System\nCPU: %.1f%%  Memory: %.1f%% used", b.System.CPUPercent, b.System.Memory.Percent)
		if b.System.Battery != nil {
			state := "discharging"
			if b.System.Battery.Plugged {
				state = "plugged in"
			}
			fmt.Fprintf(&sb, "  Battery: %d%% (%s)", b.System.Battery.Percent, state)
		}
		sb.WriteString("\n")
	}

	if len(b.Keybindings) > 0 {
		sb.WriteString("\n## Keybindings\n")
		binds := b.Keybindings
		if len(binds) > maxPromptKeybindings {
			binds = binds[:maxPromptKeybindings]
		}
		for _, kb := range binds {
			fmt.Fprintf(&sb, "  %s + %s -> %s\n", kb.Modifiers, kb.Key, kb.Action)
		}
	}

	if len(b.Recent) > 0 {
		sb.WriteString("\n## Recent commands\n")
		recent := b.Recent
		if len(recent) > maxPromptCommands {
			recent = recent[:maxPromptCommands]
		}
		for _, r := range recent {
			status := "ok"
			if !r.Success {
				status = "failed"
			}
			fmt.Fprintf(&sb, "  [%s] %s (%s)\n", status, r.Action, r.Query)
		}
	}

	return sb.String()
}
