// Package hypr owns the two IPC channels to the Hyprland compositor: the
// request/response command socket (.socket.sock) and the push event socket
// (.socket2.sock). Every command call is an independent connection; the
// event listener holds one long-lived connection and reconnects on loss.
package hypr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInstanceNotFound means no running Hyprland instance could be located.
// Fatal at construction: the daemon cannot run without the compositor.
var ErrInstanceNotFound = errors.New("hyprland instance not found")

const (
	commandTimeout   = 5 * time.Second
	reconnectDelay   = 5 * time.Second
	responseReadSize = 8192
)

// Client talks to one Hyprland instance.
type Client struct {
	log           *zap.Logger
	commandSocket string
	eventSocket   string

	mu        sync.Mutex
	observers map[int]Observer
	nextID    int

	stopOnce sync.Once
	stopped  chan struct{}
}

// New resolves the instance sockets and returns a client. The instance
// signature comes from HYPRLAND_INSTANCE_SIGNATURE, falling back to scanning
// the runtime directory for a single live instance.
func New(log *zap.Logger) (*Client, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	base := runtimeDir()
	if sig == "" {
		log.Warn("HYPRLAND_INSTANCE_SIGNATURE not set, scanning for instance", zap.String("dir", base))
		detected, err := detectInstance(base)
		if err != nil {
			return nil, err
		}
		sig = detected
	}

	dir := filepath.Join(base, sig)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, dir)
	}

	c := newClient(log, filepath.Join(dir, ".socket.sock"), filepath.Join(dir, ".socket2.sock"))
	log.Info("hyprland client initialized", zap.String("instance", sig))
	return c, nil
}

func newClient(log *zap.Logger, commandSocket, eventSocket string) *Client {
	return &Client{
		log:           log,
		commandSocket: commandSocket,
		eventSocket:   eventSocket,
		observers:     make(map[int]Observer),
		stopped:       make(chan struct{}),
	}
}

// runtimeDir returns where Hyprland keeps its per-instance socket
// directories. Older releases used /tmp/hypr.
func runtimeDir() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		dir := filepath.Join(xdg, "hypr")
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return "/tmp/hypr"
}

func detectInstance(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInstanceNotFound, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("%w: no instances under %s", ErrInstanceNotFound, base)
}

// ExecuteCommand sends one command over a fresh connection to the command
// socket and returns the full response. The j/ prefix requests JSON output.
func (c *Client) ExecuteCommand(command string) (string, error) {
	conn, err := net.DialTimeout("unix", c.commandSocket, commandTimeout)
	if err != nil {
		return "", fmt.Errorf("dial command socket: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(commandTimeout))

	if _, err := conn.Write([]byte("j/" + command)); err != nil {
		return "", fmt.Errorf("write command %q: %w", command, err)
	}

	var sb strings.Builder
	buf := make([]byte, responseReadSize)
	for {
		n, err := conn.Read(buf)
		sb.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read response for %q: %w", command, err)
		}
	}
	return sb.String(), nil
}

// Dispatch invokes a named Hyprland dispatcher. It returns false rather
// than an error when the textual response carries an error marker; the
// socket has no structured status code, so this string sniff is a known
// fragility of the IPC contract.
func (c *Client) Dispatch(dispatcher string, args ...string) bool {
	command := "dispatch " + dispatcher
	if len(args) > 0 {
		command += " " + strings.Join(args, ",")
	}

	resp, err := c.ExecuteCommand(command)
	if err != nil {
		c.log.Error("dispatcher failed", zap.String("command", command), zap.Error(err))
		return false
	}
	if strings.Contains(strings.ToLower(resp), "error") {
		c.log.Error("dispatcher rejected", zap.String("command", command), zap.String("response", resp))
		return false
	}
	c.log.Debug("dispatcher executed", zap.String("command", command))
	return true
}

// GetSnapshot issues the five state reads and merges them. A failed
// sub-read logs and leaves its field empty; the snapshot itself never
// fails.
func (c *Client) GetSnapshot() Snapshot {
	var snap Snapshot
	c.readJSON("activewindow", &snap.ActiveWindow)
	c.readJSON("workspaces", &snap.Workspaces)
	c.readJSON("monitors", &snap.Monitors)
	c.readJSON("clients", &snap.Clients)
	c.readJSON("activeworkspace", &snap.Workspace)
	return snap
}

func (c *Client) readJSON(command string, out any) {
	resp, err := c.ExecuteCommand(command)
	if err != nil {
		c.log.Error("state read failed", zap.String("command", command), zap.Error(err))
		return
	}
	if strings.TrimSpace(resp) == "" {
		return
	}
	if err := json.Unmarshal([]byte(resp), out); err != nil {
		c.log.Error("state parse failed", zap.String("command", command), zap.Error(err))
	}
}

// ActiveWindow reads the currently focused window.
func (c *Client) ActiveWindow() Window {
	var w Window
	c.readJSON("activewindow", &w)
	return w
}

// Clients reads all mapped windows.
func (c *Client) Clients() []Window {
	var ws []Window
	c.readJSON("clients", &ws)
	return ws
}

// Monitors reads all outputs.
func (c *Client) Monitors() []Monitor {
	var ms []Monitor
	c.readJSON("monitors", &ms)
	return ms
}

// FocusWindow focuses a window by class, title, or address.
func (c *Client) FocusWindow(identifier, by string) bool {
	switch by {
	case "class", "title", "address":
		return c.Dispatch("focuswindow", by+":"+identifier)
	}
	return false
}

// MoveWindowToWorkspace moves the active window.
func (c *Client) MoveWindowToWorkspace(workspace int) bool {
	return c.Dispatch("movetoworkspace", fmt.Sprintf("%d", workspace))
}

// ResizeActive resizes the active window to an exact size.
func (c *Client) ResizeActive(width, height int) bool {
	return c.Dispatch("resizeactive", fmt.Sprintf("%d %d", width, height))
}

// CloseWindow closes a window; with an identifier it focuses first.
func (c *Client) CloseWindow(identifier string) bool {
	if identifier != "" {
		c.FocusWindow(identifier, "class")
	}
	return c.Dispatch("killactive")
}

// Exec launches an application through the compositor.
func (c *Client) Exec(command string) bool {
	return c.Dispatch("exec", command)
}

// SwitchWorkspace changes the active workspace.
func (c *Client) SwitchWorkspace(workspace int) bool {
	return c.Dispatch("workspace", fmt.Sprintf("%d", workspace))
}

// ToggleFullscreen toggles fullscreen on the active window.
func (c *Client) ToggleFullscreen() bool {
	return c.Dispatch("fullscreen", "1")
}

// ToggleFloating toggles floating mode on the active window.
func (c *Client) ToggleFloating() bool {
	return c.Dispatch("togglefloating")
}

// MoveCursor warps the cursor to an absolute position.
func (c *Client) MoveCursor(x, y int) bool {
	return c.Dispatch("movecursor", fmt.Sprintf("%d %d", x, y))
}

// ReloadConfig asks the compositor to reload its configuration.
func (c *Client) ReloadConfig() bool {
	return c.Dispatch("reload")
}
