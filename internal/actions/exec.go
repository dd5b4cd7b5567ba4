package actions

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// dangerousPatterns is a substring deny-list checked before anything is
// spawned. Substring matching is intentionally coarse; the model is the
// only caller and the list catches the obvious footguns.
var dangerousPatterns = []string{
	"rm -rf /",
	"mkfs",
	"dd if=",
}

// terminalPreference is tried in order when a command asks for a
// visible terminal; xterm is the fallback.
var terminalPreference = []string{
	"kitty",
	"alacritty",
	"foot",
	"wezterm",
	"terminator",
	"gnome-terminal",
}

const (
	stdoutLimit = 1000
	stderrLimit = 500
)

func checkDangerous(command string) error {
	for _, pat := range dangerousPatterns {
		if strings.Contains(command, pat) {
			return fmt.Errorf("%w: matches %q", ErrDangerousCommand, pat)
		}
	}
	return nil
}

func (e *Executor) detectTerminal() string {
	for _, term := range terminalPreference {
		if _, err := e.runner.lookPath(term); err == nil {
			return term
		}
	}
	return "xterm"
}

func (e *Executor) handleExecute(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Command  string `json:"command"`
		Terminal bool   `json:"terminal"`
		Wait     bool   `json:"wait"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Command == "" {
		return "", fmt.Errorf("no command specified")
	}
	if err := checkDangerous(p.Command); err != nil {
		e.log.Warn("blocked dangerous command", zap.String("command", p.Command))
		return "", err
	}

	command := p.Command
	if p.Terminal {
		term := e.detectTerminal()
		command = fmt.Sprintf("%s -e sh -c %q", term, p.Command)
	}

	if p.Wait {
		stdout, stderr, err := e.runner.shell(ctx, command)
		if err != nil {
			msg := strings.TrimSpace(string(stderr))
			if len(msg) > stderrLimit {
				msg = msg[:stderrLimit]
			}
			if msg == "" {
				msg = err.Error()
			}
			return "", fmt.Errorf("command failed: %s", msg)
		}
		out := strings.TrimSpace(string(stdout))
		if len(out) > stdoutLimit {
			out = out[:stdoutLimit]
		}
		if out == "" {
			out = "Command executed successfully"
		}
		return out, nil
	}

	if err := e.runner.detach(command); err != nil {
		return "", fmt.Errorf("launch: %w", err)
	}
	return "Command launched in background", nil
}
