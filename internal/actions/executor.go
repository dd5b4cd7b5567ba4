// Package actions validates and executes the closed set of action kinds a
// model response may request: input simulation, shell commands, compositor
// dispatch, file I/O, and system control. A single action's failure never
// escapes Execute; it becomes a failed Result.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Compositor is the slice of the hypr client the executor needs.
type Compositor interface {
	Dispatch(dispatcher string, args ...string) bool
	FocusWindow(identifier, by string) bool
}

type handler func(ctx context.Context, params map[string]any) (string, error)

// Executor dispatches validated Specs to kind handlers. Stateless between
// calls apart from the fixed registry.
type Executor struct {
	log        *zap.Logger
	compositor Compositor
	registry   map[Kind]handler

	// runner points at the real subprocess runner; tests substitute it.
	runner cmdRunner
}

// NewExecutor builds the executor and its kind registry.
func NewExecutor(log *zap.Logger, compositor Compositor) *Executor {
	e := &Executor{
		log:        log,
		compositor: compositor,
		runner:     execRunner{},
	}
	e.registry = map[Kind]handler{
		KindKeyboard:         e.handleKeyboard,
		KindMouseMove:        e.handleMouseMove,
		KindMouseClick:       e.handleMouseClick,
		KindExecute:          e.handleExecute,
		KindHyprlandDispatch: e.handleDispatch,
		KindFocusWindow:      e.handleFocusWindow,
		KindScreenshot:       e.handleScreenshot,
		KindFileWrite:        e.handleFileWrite,
		KindFileRead:         e.handleFileRead,
		KindAudioControl:     e.handleAudioControl,
		KindBrightness:       e.handleBrightness,
		KindProcessControl:   e.handleProcessControl,
	}
	return e
}

// AvailableKinds returns the sorted registry keys; fed to the model so it
// plans only executable actions.
func (e *Executor) AvailableKinds() []string {
	kinds := make([]string, 0, len(e.registry))
	for k := range e.registry {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return kinds
}

// Execute runs one action. Unknown kinds and handler failures come back as
// failed Results; nothing propagates past this boundary.
func (e *Executor) Execute(ctx context.Context, spec Spec) Result {
	h, ok := e.registry[spec.Type]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownActionKind, spec.Type)
		e.log.Warn("rejected action", zap.String("type", string(spec.Type)))
		return Result{Action: spec, Success: false, Error: err.Error(), Err: err}
	}

	e.log.Info("executing action", zap.String("type", string(spec.Type)), zap.Any("params", spec.Params))

	output, err := h(ctx, spec.Params)
	if err != nil {
		e.log.Error("action failed", zap.String("type", string(spec.Type)), zap.Error(err))
		return Result{Action: spec, Success: false, Error: err.Error(), Err: err}
	}
	return Result{Action: spec, Success: true, Output: output}
}

// decodeParams round-trips the loose params map through JSON into a typed
// struct, so handlers work with validated fields rather than raw maps.
func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func (e *Executor) handleDispatch(_ context.Context, params map[string]any) (string, error) {
	var p struct {
		Dispatcher string   `json:"dispatcher"`
		Args       []string `json:"args"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Dispatcher == "" {
		return "", fmt.Errorf("no dispatcher specified")
	}
	if !e.compositor.Dispatch(p.Dispatcher, p.Args...) {
		return "", fmt.Errorf("%w: %s", ErrDispatchFailed, p.Dispatcher)
	}
	return fmt.Sprintf("executed: %s %v", p.Dispatcher, p.Args), nil
}

func (e *Executor) handleFocusWindow(_ context.Context, params map[string]any) (string, error) {
	var p struct {
		Identifier string `json:"identifier"`
		By         string `json:"by"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.By == "" {
		p.By = "class"
	}
	if !e.compositor.FocusWindow(p.Identifier, p.By) {
		return "", fmt.Errorf("%w: could not focus %q", ErrDispatchFailed, p.Identifier)
	}
	return "focused window: " + p.Identifier, nil
}
