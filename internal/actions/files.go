package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	maxReadBytes  = 1 << 20 // reject larger files outright
	maxReturnRune = 5000    // truncate returned content past this
)

// expandPath resolves ~ and ~/... against the current home directory
// and returns the cleaned absolute path.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// confineToHome rejects any path that escapes the user's home
// directory after expansion, including via .. segments.
func confineToHome(path string) (string, error) {
	abs, err := expandPath(path)
	if err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	home = filepath.Clean(home)
	if abs != home && !strings.HasPrefix(abs, home+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideHome, path)
	}
	return abs, nil
}

func (e *Executor) handleFileWrite(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Path == "" {
		return "", fmt.Errorf("no path specified")
	}

	abs, err := confineToHome(p.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create parent dirs: %w", err)
	}

	if p.Append {
		f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return "", err
		}
		defer f.Close()
		if _, err := f.WriteString(p.Content); err != nil {
			return "", err
		}
	} else {
		if err := os.WriteFile(abs, []byte(p.Content), 0o644); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(p.Content), abs), nil
}

func (e *Executor) handleFileRead(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Path string `json:"path"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Path == "" {
		return "", fmt.Errorf("no path specified")
	}

	abs, err := confineToHome(p.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.Size() > maxReadBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	content := string(data)
	if utf8.RuneCountInString(content) > maxReturnRune {
		runes := []rune(content)
		content = string(runes[:maxReturnRune]) + "\n... (truncated)"
	}
	return content, nil
}
