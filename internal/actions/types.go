package actions

import "errors"

// Kind tags one supported action type. The set is closed: the registry is
// built once at construction and adding a kind means adding a constant and
// a handler, not mutating a table at runtime.
type Kind string

const (
	KindKeyboard         Kind = "keyboard"
	KindMouseMove        Kind = "mouse_move"
	KindMouseClick       Kind = "mouse_click"
	KindExecute          Kind = "execute"
	KindHyprlandDispatch Kind = "hyprland_dispatch"
	KindFocusWindow      Kind = "focus_window"
	KindScreenshot       Kind = "screenshot"
	KindFileWrite        Kind = "file_write"
	KindFileRead         Kind = "file_read"
	KindAudioControl     Kind = "audio_control"
	KindBrightness       Kind = "brightness"
	KindProcessControl   Kind = "process_control"
)

// Policy and validation errors. Each surfaces as a failed ActionResult,
// never as a panic or a dropped query.
var (
	ErrUnknownActionKind = errors.New("unknown action kind")
	ErrUnknownSubAction  = errors.New("unknown sub-action")
	ErrDangerousCommand  = errors.New("dangerous command blocked")
	ErrPathOutsideHome   = errors.New("path outside home directory")
	ErrFileTooLarge      = errors.New("file too large")
	ErrDispatchFailed    = errors.New("dispatcher failed")
)

// Spec is one declarative action as produced by the model client.
type Spec struct {
	Type   Kind           `json:"type"`
	Params map[string]any `json:"params"`
}

// Result is the outcome of executing one Spec. Results match input specs
// 1:1 and in order.
type Result struct {
	Action  Spec   `json:"action"`
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`

	// Err carries the typed error for callers inside the process.
	Err error `json:"-"`
}
