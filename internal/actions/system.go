package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func (e *Executor) handleAudioControl(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Action string `json:"action"`
		Amount int    `json:"amount"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Amount <= 0 {
		p.Amount = 5
	}

	switch p.Action {
	case "volume_up":
		arg := "+" + strconv.Itoa(p.Amount) + "%"
		if _, err := e.runner.run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", arg); err != nil {
			return "", fmt.Errorf("pactl: %w", err)
		}
		return fmt.Sprintf("volume up %d%%", p.Amount), nil
	case "volume_down":
		arg := "-" + strconv.Itoa(p.Amount) + "%"
		if _, err := e.runner.run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", arg); err != nil {
			return "", fmt.Errorf("pactl: %w", err)
		}
		return fmt.Sprintf("volume down %d%%", p.Amount), nil
	case "mute":
		if _, err := e.runner.run(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"); err != nil {
			return "", fmt.Errorf("pactl: %w", err)
		}
		return "toggled mute", nil
	default:
		return "", fmt.Errorf("%w: audio_control %q", ErrUnknownSubAction, p.Action)
	}
}

func (e *Executor) handleBrightness(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Action string `json:"action"`
		Value  int    `json:"value"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Value <= 0 {
		p.Value = 10
	}

	var arg string
	switch p.Action {
	case "set":
		arg = strconv.Itoa(p.Value) + "%"
	case "increase":
		arg = "+" + strconv.Itoa(p.Value) + "%"
	case "decrease":
		// brightnessctl takes trailing minus for relative decrease
		arg = strconv.Itoa(p.Value) + "%-"
	default:
		return "", fmt.Errorf("%w: brightness %q", ErrUnknownSubAction, p.Action)
	}
	if _, err := e.runner.run(ctx, "brightnessctl", "set", arg); err != nil {
		return "", fmt.Errorf("brightnessctl: %w", err)
	}
	return "brightness " + p.Action + " " + arg, nil
}

const processListLimit = 2000

func (e *Executor) handleProcessControl(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Action string `json:"action"`
		Name   string `json:"name"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}

	switch p.Action {
	case "list":
		out, err := e.runner.run(ctx, "ps", "aux", "--sort=-%cpu")
		if err != nil {
			return "", fmt.Errorf("ps: %w", err)
		}
		s := strings.TrimSpace(string(out))
		if len(s) > processListLimit {
			s = s[:processListLimit] + "\n... (truncated)"
		}
		return s, nil
	case "kill":
		if p.Name == "" {
			return "", fmt.Errorf("no process name specified")
		}
		if _, err := e.runner.run(ctx, "pkill", "-f", p.Name); err != nil {
			return "", fmt.Errorf("pkill %s: %w", p.Name, err)
		}
		return "killed processes matching " + p.Name, nil
	default:
		return "", fmt.Errorf("%w: process_control %q", ErrUnknownSubAction, p.Action)
	}
}
