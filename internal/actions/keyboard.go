package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ydotool key codes for modifier keys.
var modifierCodes = map[string]string{
	"super": "125",
	"ctrl":  "29",
	"alt":   "56",
	"shift": "42",
}

// ydotool key codes for named non-letter keys.
var namedKeyCodes = map[string]string{
	"return":    "28",
	"enter":     "28",
	"space":     "57",
	"tab":       "15",
	"esc":       "1",
	"escape":    "1",
	"backspace": "14",
	"delete":    "111",
	"left":      "105",
	"right":     "106",
	"up":        "103",
	"down":      "108",
	"home":      "102",
	"end":       "107",
	"pageup":    "104",
	"pagedown":  "109",
}

// maxChordSegments bounds how many +-joined tokens count as a chord;
// anything longer is literal text that happens to contain plus signs.
const maxChordSegments = 4

func (e *Executor) handleKeyboard(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Keys  string  `json:"keys"`
		Delay float64 `json:"delay"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Keys == "" {
		return "", fmt.Errorf("no keys specified")
	}
	if p.Delay <= 0 {
		p.Delay = 0.05
	}

	if isChord(p.Keys) {
		return e.sendChord(ctx, p.Keys)
	}
	return e.typeText(ctx, p.Keys, p.Delay)
}

func isChord(keys string) bool {
	return strings.Contains(keys, "+") && len(strings.Split(keys, "+")) <= maxChordSegments
}

// chordArgs maps "Super+Return" style chords to ydotool press/release
// pairs: presses in order, releases reversed. Unknown tokens are skipped
// and reported rather than aborting the chord.
func chordArgs(combo string) (args []string, skipped []string) {
	var presses, releases []string
	for _, part := range strings.Split(combo, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		var code string
		switch {
		case modifierCodes[part] != "":
			code = modifierCodes[part]
		case namedKeyCodes[part] != "":
			code = namedKeyCodes[part]
		case len(part) == 1 && part[0] >= 'a' && part[0] <= 'z':
			// Approximate letter mapping onto the a-row code block.
			code = strconv.Itoa(int(part[0]-'a') + 30)
		default:
			skipped = append(skipped, part)
			continue
		}
		presses = append(presses, code+":1")
		releases = append([]string{code + ":0"}, releases...)
	}
	return append(presses, releases...), skipped
}

func (e *Executor) sendChord(ctx context.Context, combo string) (string, error) {
	args, skipped := chordArgs(combo)
	for _, s := range skipped {
		e.log.Warn("unknown key in chord, skipping", zap.String("key", s), zap.String("chord", combo))
	}
	if len(args) == 0 {
		return "", fmt.Errorf("no recognizable keys in chord %q", combo)
	}

	if _, err := e.runner.run(ctx, "ydotool", append([]string{"key"}, args...)...); err != nil {
		return "", fmt.Errorf("ydotool key: %w", err)
	}
	return "sent key combo: " + combo, nil
}

func (e *Executor) typeText(ctx context.Context, text string, delaySeconds float64) (string, error) {
	delayMs := strconv.Itoa(int(delaySeconds * 1000))
	if _, err := e.runner.run(ctx, "ydotool", "type", "--key-delay", delayMs, text); err != nil {
		return "", fmt.Errorf("ydotool type: %w", err)
	}
	if len(text) > 50 {
		text = text[:50] + "..."
	}
	return "typed: " + text, nil
}

func (e *Executor) handleMouseMove(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		X        int  `json:"x"`
		Y        int  `json:"y"`
		Relative bool `json:"relative"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}

	// Coordinates pass through unclamped; the backend owns bounds.
	var args []string
	if p.Relative {
		args = []string{"mousemove", "--", strconv.Itoa(p.X), strconv.Itoa(p.Y)}
	} else {
		args = []string{"mousemove", "-a", strconv.Itoa(p.X), strconv.Itoa(p.Y)}
	}
	if _, err := e.runner.run(ctx, "ydotool", args...); err != nil {
		return "", fmt.Errorf("ydotool mousemove: %w", err)
	}
	return fmt.Sprintf("moved mouse to (%d, %d)", p.X, p.Y), nil
}

var mouseButtonCodes = map[string]string{
	"left":   "0xC0",
	"right":  "0xC1",
	"middle": "0xC2",
}

func (e *Executor) handleMouseClick(ctx context.Context, params map[string]any) (string, error) {
	var p struct {
		Button string `json:"button"`
		Clicks int    `json:"clicks"`
	}
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Button == "" {
		p.Button = "left"
	}
	if p.Clicks <= 0 {
		p.Clicks = 1
	}

	code, ok := mouseButtonCodes[p.Button]
	if !ok {
		code = mouseButtonCodes["left"]
	}
	args := []string{"click"}
	for i := 0; i < p.Clicks; i++ {
		args = append(args, code)
	}
	if _, err := e.runner.run(ctx, "ydotool", args...); err != nil {
		return "", fmt.Errorf("ydotool click: %w", err)
	}
	return fmt.Sprintf("clicked %s button %d time(s)", p.Button, p.Clicks), nil
}
