package actions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// fakeRunner records invocations instead of spawning anything.
type fakeRunner struct {
	runCalls    [][]string
	shellCalls  []string
	detachCalls []string
	installed   map[string]bool

	runOut   []byte
	shellOut []byte
	shellErr []byte
	failWith error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.runCalls = append(f.runCalls, append([]string{name}, args...))
	return f.runOut, f.failWith
}

func (f *fakeRunner) shell(ctx context.Context, command string) ([]byte, []byte, error) {
	f.shellCalls = append(f.shellCalls, command)
	return f.shellOut, f.shellErr, f.failWith
}

func (f *fakeRunner) detach(command string) error {
	f.detachCalls = append(f.detachCalls, command)
	return f.failWith
}

func (f *fakeRunner) lookPath(name string) (string, error) {
	if f.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

type fakeCompositor struct {
	dispatches [][]string
	focused    []string
	ok         bool
}

func (f *fakeCompositor) Dispatch(dispatcher string, args ...string) bool {
	f.dispatches = append(f.dispatches, append([]string{dispatcher}, args...))
	return f.ok
}

func (f *fakeCompositor) FocusWindow(identifier, by string) bool {
	f.focused = append(f.focused, by+":"+identifier)
	return f.ok
}

func newTestExecutor(runner *fakeRunner, comp *fakeCompositor) *Executor {
	e := NewExecutor(zap.NewNop(), comp)
	e.runner = runner
	return e
}

func TestExecuteUnknownKind(t *testing.T) {
	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{ok: true})
	res := e.Execute(context.Background(), Spec{Type: "teleport"})
	if res.Success {
		t.Fatal("unknown kind should not succeed")
	}
	if !errors.Is(res.Err, ErrUnknownActionKind) {
		t.Errorf("Err = %v, want ErrUnknownActionKind", res.Err)
	}
}

func TestDangerousCommandNeverSpawns(t *testing.T) {
	for _, cmd := range []string{
		"rm -rf / --no-preserve-root",
		"mkfs.ext4 /dev/sda1",
		"dd if=/dev/zero of=/dev/sda",
	} {
		runner := &fakeRunner{}
		e := newTestExecutor(runner, &fakeCompositor{})
		res := e.Execute(context.Background(), Spec{
			Type:   KindExecute,
			Params: map[string]any{"command": cmd, "wait": true},
		})
		if res.Success {
			t.Errorf("%q: should be blocked", cmd)
		}
		if !errors.Is(res.Err, ErrDangerousCommand) {
			t.Errorf("%q: Err = %v, want ErrDangerousCommand", cmd, res.Err)
		}
		if len(runner.shellCalls)+len(runner.detachCalls)+len(runner.runCalls) != 0 {
			t.Errorf("%q: blocked command still spawned a process", cmd)
		}
	}
}

func TestExecuteWaitTruncatesOutput(t *testing.T) {
	runner := &fakeRunner{shellOut: []byte(strings.Repeat("x", 5000))}
	e := newTestExecutor(runner, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindExecute,
		Params: map[string]any{"command": "yes | head", "wait": true},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if len(res.Output) != stdoutLimit {
		t.Errorf("output length = %d, want %d", len(res.Output), stdoutLimit)
	}
}

func TestExecuteBackground(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(runner, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindExecute,
		Params: map[string]any{"command": "firefox"},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if len(runner.detachCalls) != 1 || runner.detachCalls[0] != "firefox" {
		t.Errorf("detach calls = %v", runner.detachCalls)
	}
	if res.Output != "Command launched in background" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestExecuteTerminalWrapsCommand(t *testing.T) {
	runner := &fakeRunner{installed: map[string]bool{"foot": true}}
	e := newTestExecutor(runner, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindExecute,
		Params: map[string]any{"command": "htop", "terminal": true},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if len(runner.detachCalls) != 1 || !strings.HasPrefix(runner.detachCalls[0], "foot -e") {
		t.Errorf("detach calls = %v, want foot wrapper", runner.detachCalls)
	}
}

func TestDetectTerminalFallback(t *testing.T) {
	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	if term := e.detectTerminal(); term != "xterm" {
		t.Errorf("detectTerminal() = %q, want xterm", term)
	}
}

func TestChordArgs(t *testing.T) {
	tests := []struct {
		combo string
		want  []string
	}{
		{"Super+Return", []string{"125:1", "28:1", "28:0", "125:0"}},
		{"ctrl+shift+t", []string{"29:1", "42:1", "49:1", "49:0", "42:0", "29:0"}},
		{"alt+tab", []string{"56:1", "15:1", "15:0", "56:0"}},
	}
	for _, tt := range tests {
		got, skipped := chordArgs(tt.combo)
		if len(skipped) != 0 {
			t.Errorf("%s: skipped %v", tt.combo, skipped)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s: args mismatch (-want +got):\n%s", tt.combo, diff)
		}
	}
}

func TestChordArgsSkipsUnknownKeys(t *testing.T) {
	got, skipped := chordArgs("super+nosuchkey+t")
	if len(skipped) != 1 || skipped[0] != "nosuchkey" {
		t.Fatalf("skipped = %v", skipped)
	}
	want := []string{"125:1", "49:1", "49:0", "125:0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestKeyboardTypesLiteralText(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(runner, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindKeyboard,
		Params: map[string]any{"keys": "hello world"},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if len(runner.runCalls) != 1 {
		t.Fatalf("run calls = %v", runner.runCalls)
	}
	call := runner.runCalls[0]
	if call[0] != "ydotool" || call[1] != "type" {
		t.Errorf("call = %v", call)
	}
	if call[len(call)-1] != "hello world" {
		t.Errorf("typed %q", call[len(call)-1])
	}
}

func TestMouseClickRepeatsButtonCode(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(runner, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindMouseClick,
		Params: map[string]any{"button": "right", "clicks": 2},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	want := []string{"ydotool", "click", "0xC1", "0xC1"}
	if diff := cmp.Diff(want, runner.runCalls[0]); diff != "" {
		t.Errorf("call mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchGoesToCompositor(t *testing.T) {
	comp := &fakeCompositor{ok: true}
	e := newTestExecutor(&fakeRunner{}, comp)
	res := e.Execute(context.Background(), Spec{
		Type:   KindHyprlandDispatch,
		Params: map[string]any{"dispatcher": "workspace", "args": []any{"3"}},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if len(comp.dispatches) != 1 || comp.dispatches[0][0] != "workspace" {
		t.Errorf("dispatches = %v", comp.dispatches)
	}
}

func TestUnknownSubAction(t *testing.T) {
	for _, spec := range []Spec{
		{Type: KindAudioControl, Params: map[string]any{"action": "louder"}},
		{Type: KindBrightness, Params: map[string]any{"action": "dim"}},
		{Type: KindProcessControl, Params: map[string]any{"action": "freeze"}},
	} {
		e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
		res := e.Execute(context.Background(), spec)
		if res.Success {
			t.Errorf("%s: should fail", spec.Type)
		}
		if !errors.Is(res.Err, ErrUnknownSubAction) {
			t.Errorf("%s: Err = %v, want ErrUnknownSubAction", spec.Type, res.Err)
		}
	}
}

func TestBrightnessDecreaseUsesTrailingMinus(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(runner, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindBrightness,
		Params: map[string]any{"action": "decrease", "value": 15},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	call := runner.runCalls[0]
	if call[len(call)-1] != "15%-" {
		t.Errorf("brightnessctl arg = %q, want 15%%-", call[len(call)-1])
	}
}

func TestFileWriteReadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	path := filepath.Join(home, "notes", "todo.txt")

	res := e.Execute(context.Background(), Spec{
		Type:   KindFileWrite,
		Params: map[string]any{"path": path, "content": "abc"},
	})
	if !res.Success {
		t.Fatalf("write failed: %s", res.Error)
	}

	res = e.Execute(context.Background(), Spec{
		Type:   KindFileRead,
		Params: map[string]any{"path": path},
	})
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	if res.Output != "abc" {
		t.Errorf("read back %q, want abc", res.Output)
	}
}

func TestFileReadRejectsOversized(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	big := filepath.Join(home, "big.bin")
	if err := os.WriteFile(big, make([]byte, maxReadBytes+1), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindFileRead,
		Params: map[string]any{"path": big},
	})
	if res.Success {
		t.Fatal("oversized read should fail")
	}
	if !errors.Is(res.Err, ErrFileTooLarge) {
		t.Errorf("Err = %v, want ErrFileTooLarge", res.Err)
	}
}

func TestFileReadTruncatesLongContent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	long := filepath.Join(home, "long.txt")
	if err := os.WriteFile(long, []byte(strings.Repeat("a", maxReturnRune+100)), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindFileRead,
		Params: map[string]any{"path": long},
	})
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	if !strings.HasSuffix(res.Output, "(truncated)") {
		t.Error("long content should be marked truncated")
	}
	if len(res.Output) > maxReturnRune+100 {
		t.Errorf("output not truncated, length %d", len(res.Output))
	}
}

func TestFileReadTruncatesOnRuneBoundary(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// Multi-byte content whose 5000th byte falls mid-rune; the cut must
	// land between runes, never inside one.
	long := filepath.Join(home, "notes.txt")
	if err := os.WriteFile(long, []byte(strings.Repeat("é", maxReturnRune+50)), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	res := e.Execute(context.Background(), Spec{
		Type:   KindFileRead,
		Params: map[string]any{"path": long},
	})
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	if !utf8.ValidString(res.Output) {
		t.Error("truncated output contains a split rune")
	}
	suffix := "\n... (truncated)"
	if !strings.HasSuffix(res.Output, suffix) {
		t.Fatalf("output = %q", res.Output[len(res.Output)-30:])
	}
	content := strings.TrimSuffix(res.Output, suffix)
	if got := utf8.RuneCountInString(content); got != maxReturnRune {
		t.Errorf("kept %d runes, want %d", got, maxReturnRune)
	}
}

func TestFileAccessConfinedToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	for _, path := range []string{
		"/etc/passwd",
		"~/../../etc/passwd",
		filepath.Join(home, "..", "other", "f.txt"),
	} {
		res := e.Execute(context.Background(), Spec{
			Type:   KindFileWrite,
			Params: map[string]any{"path": path, "content": "x"},
		})
		if res.Success {
			t.Errorf("%q: write outside home should fail", path)
		}
		if !errors.Is(res.Err, ErrPathOutsideHome) {
			t.Errorf("%q: Err = %v, want ErrPathOutsideHome", path, res.Err)
		}
	}
}

func TestScreenshotCaptureOnlyReportsBytes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	runner := &fakeRunner{runOut: []byte("fake-png-data")}
	e := newTestExecutor(runner, &fakeCompositor{})

	res := e.Execute(context.Background(), Spec{Type: KindScreenshot, Params: map[string]any{}})
	if !res.Success {
		t.Fatalf("capture failed: %v", res.Err)
	}
	if res.Output != "Screenshot captured (13 bytes)" {
		t.Errorf("output = %q", res.Output)
	}
	entries, err := os.ReadDir(os.Getenv("HOME"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("capture without save wrote files: %v", entries)
	}
}

func TestScreenshotSaveWritesDefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	runner := &fakeRunner{runOut: []byte("fake-png-data")}
	e := newTestExecutor(runner, &fakeCompositor{})

	res := e.Execute(context.Background(), Spec{Type: KindScreenshot, Params: map[string]any{"save": true}})
	if !res.Success {
		t.Fatalf("save failed: %v", res.Err)
	}
	if !strings.HasPrefix(res.Output, "screenshot saved to ") {
		t.Errorf("output = %q", res.Output)
	}
	matches, err := filepath.Glob(filepath.Join(os.Getenv("HOME"), "Pictures", "screenshots", "screenshot_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("saved files = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake-png-data" {
		t.Errorf("saved %q", data)
	}
}

func TestAvailableKindsSortedAndComplete(t *testing.T) {
	e := newTestExecutor(&fakeRunner{}, &fakeCompositor{})
	kinds := e.AvailableKinds()
	if len(kinds) != 12 {
		t.Fatalf("got %d kinds: %v", len(kinds), kinds)
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Fatalf("kinds not sorted: %v", kinds)
		}
	}
}
