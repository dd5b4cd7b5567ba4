package hypr

// Window is one Hyprland client as reported by the command socket.
// Field names follow the hyprctl JSON output.
type Window struct {
	Address    string       `json:"address"`
	Class      string       `json:"class"`
	Title      string       `json:"title"`
	PID        int          `json:"pid"`
	Workspace  WorkspaceRef `json:"workspace"`
	Monitor    int          `json:"monitor"`
	Floating   bool         `json:"floating"`
	Fullscreen int          `json:"fullscreen"`
	Mapped     bool         `json:"mapped"`
}

// WorkspaceRef is the compact workspace reference embedded in windows.
type WorkspaceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Workspace is a full workspace record.
type Workspace struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Monitor         string `json:"monitor"`
	Windows         int    `json:"windows"`
	HasFullscreen   bool   `json:"hasfullscreen"`
	LastWindow      string `json:"lastwindow"`
	LastWindowTitle string `json:"lastwindowtitle"`
}

// Monitor is one output.
type Monitor struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	RefreshRate     float64      `json:"refreshRate"`
	X               int          `json:"x"`
	Y               int          `json:"y"`
	ActiveWorkspace WorkspaceRef `json:"activeWorkspace"`
	Scale           float64      `json:"scale"`
	Focused         bool         `json:"focused"`
}

// Snapshot is a point-in-time read of compositor state. It is rebuilt in
// full on every request and never mutated after construction. Sub-reads
// that fail leave their field at the zero value.
type Snapshot struct {
	ActiveWindow Window      `json:"active_window"`
	Workspace    Workspace   `json:"workspace"`
	Monitors     []Monitor   `json:"monitors"`
	Clients      []Window    `json:"clients"`
	Workspaces   []Workspace `json:"workspaces"`
}

// EventKind is the semantic name of a compositor event.
type EventKind string

const (
	EventWorkspaceChanged  EventKind = "workspace_changed"
	EventMonitorChanged    EventKind = "monitor_changed"
	EventWindowFocused     EventKind = "window_focused"
	EventWindowOpened      EventKind = "window_opened"
	EventWindowClosed      EventKind = "window_closed"
	EventWindowMoved       EventKind = "window_moved"
	EventWindowActivated   EventKind = "window_activated"
	EventFullscreenChanged EventKind = "fullscreen_changed"
	EventMonitorAdded      EventKind = "monitor_added"
	EventMonitorRemoved    EventKind = "monitor_removed"
)

// eventKinds maps vendor event names from socket2 to semantic kinds.
// Anything not listed passes through under its raw name.
var eventKinds = map[string]EventKind{
	"workspace":      EventWorkspaceChanged,
	"focusedmon":     EventMonitorChanged,
	"activewindow":   EventWindowFocused,
	"openwindow":     EventWindowOpened,
	"closewindow":    EventWindowClosed,
	"movewindow":     EventWindowMoved,
	"activewindowv2": EventWindowActivated,
	"fullscreen":     EventFullscreenChanged,
	"monitoradded":   EventMonitorAdded,
	"monitorremoved": EventMonitorRemoved,
}

// Event is one record off the push socket. Ephemeral, never persisted.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload string    `json:"payload"`
}

// Observer receives every event in arrival order until unregistered.
type Observer func(Event)
