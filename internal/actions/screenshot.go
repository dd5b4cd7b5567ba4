package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CaptureScreen grabs the current output as PNG bytes via grim. When
// selection is true the region comes from an interactive slurp pick.
func (e *Executor) CaptureScreen(ctx context.Context, selection bool) ([]byte, error) {
	if selection {
		out, _, err := e.runner.shell(ctx, `grim -g "$(slurp)" -`)
		if err != nil {
			return nil, fmt.Errorf("grim selection: %w", err)
		}
		return out, nil
	}
	out, err := e.runner.run(ctx, "grim", "-")
	if err != nil {
		return nil, fmt.Errorf("grim: %w", err)
	}
	return out, nil
}

func (e *Executor) handleScreenshot(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Selection bool   `json:"selection"`
		Save      bool   `json:"save"`
		Path      string `json:"path"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}

	data, err := e.CaptureScreen(ctx, p.Selection)
	if err != nil {
		return "", err
	}

	// Saving is opt-in; a bare capture just reports what it grabbed.
	if !p.Save && p.Path == "" {
		return fmt.Sprintf("Screenshot captured (%d bytes)", len(data)), nil
	}

	path := p.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir := filepath.Join(home, "Pictures", "screenshots")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create screenshot dir: %w", err)
		}
		path = filepath.Join(dir, time.Now().Format("screenshot_20060102_150405.png"))
	} else {
		abs, err := confineToHome(path)
		if err != nil {
			return "", err
		}
		path = abs
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	return "screenshot saved to " + path, nil
}
