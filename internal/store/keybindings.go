package store

import (
	"bufio"
	"os"
	"strings"
)

// ParseKeybindings extracts bind lines from a Hyprland config file.
// Lines look like:
//
//	bind = SUPER, Return, exec, kitty
//	bindm = SUPER, mouse:272, movewindow
//
// The first two comma fields are the modifier set and the key, the rest
// is the bound action joined back together.
func ParseKeybindings(path string) ([]Keybinding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var binds []Keybinding
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, rest, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if !isBindDirective(strings.TrimSpace(key)) {
			continue
		}
		parts := strings.Split(rest, ",")
		if len(parts) < 3 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		binds = append(binds, Keybinding{
			Modifiers: parts[0],
			Key:       parts[1],
			Action:    strings.Join(parts[2:], ", "),
		})
	}
	return binds, sc.Err()
}

// isBindDirective accepts bind and its flag variants (bindm, binde,
// bindl, bindr and combinations) but not unrelated keys that merely
// start with "bind".
func isBindDirective(d string) bool {
	if d == "bind" {
		return true
	}
	suffix := strings.TrimPrefix(d, "bind")
	if suffix == d || len(suffix) > 3 {
		return false
	}
	for _, c := range suffix {
		switch c {
		case 'm', 'e', 'l', 'r', 'n', 't', 'i', 's', 'd', 'p':
		default:
			return false
		}
	}
	return true
}
