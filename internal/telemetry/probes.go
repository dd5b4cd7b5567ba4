package telemetry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const probeTimeout = 3 * time.Second

// probeSet holds the external probes so tests can substitute failures.
type probeSet struct {
	run       func(ctx context.Context, name string, args ...string) ([]byte, error)
	sysfs     string
	wifi      func(ctx context.Context) (bool, string, error)
	audio     func(ctx context.Context) (Audio, error)
	bluetooth func(ctx context.Context) (Bluetooth, error)
	battery   func(log *zap.Logger) *Battery
}

func defaultProbes() *probeSet {
	p := &probeSet{
		run:   runCommand,
		sysfs: "/sys/class/power_supply",
	}
	p.wifi = p.probeWifi
	p.audio = p.probeAudio
	p.bluetooth = p.probeBluetooth
	p.battery = p.probeBattery
	return p
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// probeWifi asks NetworkManager for the active wifi connection.
// Output lines look like "yes:HomeNetwork".
func (p *probeSet) probeWifi(ctx context.Context) (bool, string, error) {
	out, err := p.run(ctx, "nmcli", "-t", "-f", "ACTIVE,SSID", "dev", "wifi")
	if err != nil {
		return false, "", fmt.Errorf("nmcli: %w", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if rest, ok := strings.CutPrefix(line, "yes:"); ok {
			return true, rest, nil
		}
	}
	return false, "", nil
}

// probeAudio reads default-sink volume and mute through pactl.
func (p *probeSet) probeAudio(ctx context.Context) (Audio, error) {
	audio := Audio{}

	out, err := p.run(ctx, "pactl", "get-sink-volume", "@DEFAULT_SINK@")
	if err != nil {
		return audio, fmt.Errorf("pactl volume: %w", err)
	}
	audio.Volume = parseVolume(string(out))

	out, err = p.run(ctx, "pactl", "get-sink-mute", "@DEFAULT_SINK@")
	if err != nil {
		return audio, fmt.Errorf("pactl mute: %w", err)
	}
	audio.Muted = strings.Contains(strings.ToLower(string(out)), "yes")
	return audio, nil
}

// parseVolume pulls the percentage out of pactl output, which looks like
// "Volume: front-left: 65536 / 100% / 0.00 dB, ...".
func parseVolume(out string) int {
	before, _, ok := strings.Cut(out, "%")
	if !ok {
		return 0
	}
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0
	}
	return v
}

// probeBluetooth checks adapter power through bluetoothctl.
func (p *probeSet) probeBluetooth(ctx context.Context) (Bluetooth, error) {
	out, err := p.run(ctx, "bluetoothctl", "show")
	if err != nil {
		return Bluetooth{}, fmt.Errorf("bluetoothctl: %w", err)
	}
	return Bluetooth{
		Powered:   strings.Contains(string(out), "Powered: yes"),
		Available: true,
	}, nil
}

// probeBattery reads the first battery under /sys/class/power_supply.
// Returning nil means no battery, which is a valid state, not an error.
func (p *probeSet) probeBattery(log *zap.Logger) *Battery {
	entries, err := os.ReadDir(p.sysfs)
	if err != nil {
		log.Debug("no power supply sysfs", zap.Error(err))
		return nil
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "BAT") {
			continue
		}
		dir := filepath.Join(p.sysfs, e.Name())
		capRaw, err := os.ReadFile(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(string(capRaw)))
		if err != nil {
			continue
		}
		status, _ := os.ReadFile(filepath.Join(dir, "status"))
		return &Battery{
			Percent: pct,
			Plugged: !strings.Contains(string(status), "Discharging"),
		}
	}
	return nil
}
