package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testProbes() *probeSet {
	return &probeSet{
		run:       func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("no tools") },
		sysfs:     "/nonexistent",
		wifi:      func(context.Context) (bool, string, error) { return true, "testnet", nil },
		audio:     func(context.Context) (Audio, error) { return Audio{Volume: 40}, nil },
		bluetooth: func(context.Context) (Bluetooth, error) { return Bluetooth{Available: true}, nil },
		battery:   func(*zap.Logger) *Battery { return nil },
	}
}

func TestSampleSurvivesFailedProbes(t *testing.T) {
	s := NewSampler(zap.NewNop(), time.Second)
	p := testProbes()
	p.wifi = func(context.Context) (bool, string, error) { return false, "", errors.New("nmcli missing") }
	p.audio = func(context.Context) (Audio, error) { return Audio{}, errors.New("pactl missing") }
	p.bluetooth = func(context.Context) (Bluetooth, error) { return Bluetooth{}, errors.New("no adapter") }
	s.probes = p

	snap := s.Sample(context.Background())

	if snap.Network.WifiConnected {
		t.Error("failed wifi probe should report disconnected")
	}
	if snap.Audio.Volume != 0 || snap.Audio.Muted {
		t.Errorf("audio = %+v, want zero value", snap.Audio)
	}
	if snap.Battery != nil {
		t.Errorf("battery = %+v, want nil", snap.Battery)
	}
	if snap.Timestamp.IsZero() {
		t.Error("snapshot should be stamped")
	}
	if snap.Memory.TotalGB <= 0 {
		t.Error("memory sampling should still work")
	}
}

func TestGetStateLazyFirstSample(t *testing.T) {
	s := NewSampler(zap.NewNop(), time.Second)
	s.probes = testProbes()

	first := s.GetState(context.Background())
	if first.Timestamp.IsZero() {
		t.Fatal("first GetState should sample synchronously")
	}

	second := s.GetState(context.Background())
	if !second.Timestamp.Equal(first.Timestamp) {
		t.Error("second GetState should serve the cached snapshot")
	}
	if second.Network.WifiSSID != "testnet" {
		t.Errorf("ssid = %q", second.Network.WifiSSID)
	}
}

func TestRunPrimesImmediately(t *testing.T) {
	s := NewSampler(zap.NewNop(), time.Hour)
	s.probes = testProbes()

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	deadline := time.After(5 * time.Second)
	for s.current.Load() == nil {
		select {
		case <-deadline:
			t.Fatal("Run never primed a snapshot")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Volume: front-left: 42598 / 65% / -11.25 dB, front-right: 42598 / 65%", 65},
		{"Volume: mono: 65536 / 100% / 0.00 dB", 100},
		{"no percent here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseVolume(tt.in); got != tt.want {
			t.Errorf("parseVolume(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestProbeBatteryReadsSysfs(t *testing.T) {
	sysfs := t.TempDir()
	bat := filepath.Join(sysfs, "BAT0")
	if err := os.MkdirAll(bat, 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(bat, "capacity"), []byte("87\n"), 0o644)
	os.WriteFile(filepath.Join(bat, "status"), []byte("Discharging\n"), 0o644)

	p := &probeSet{sysfs: sysfs}
	got := p.probeBattery(zap.NewNop())
	if got == nil {
		t.Fatal("battery should be detected")
	}
	if got.Percent != 87 {
		t.Errorf("percent = %d, want 87", got.Percent)
	}
	if got.Plugged {
		t.Error("discharging battery should not report plugged")
	}
}

func TestProbeBatteryAbsent(t *testing.T) {
	p := &probeSet{sysfs: t.TempDir()}
	if got := p.probeBattery(zap.NewNop()); got != nil {
		t.Errorf("battery = %+v, want nil", got)
	}
}

func TestProbeWifiParsesActiveLine(t *testing.T) {
	p := &probeSet{}
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("no:OtherNet\nyes:HomeNet\nno:Cafe\n"), nil
	}
	connected, ssid, err := p.probeWifi(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !connected || ssid != "HomeNet" {
		t.Errorf("got %v %q", connected, ssid)
	}
}

func TestTopProcessesBounded(t *testing.T) {
	s := NewSampler(zap.NewNop(), time.Second)
	s.probes = testProbes()

	procs := s.TopProcesses(3)
	if len(procs) > 3 {
		t.Errorf("got %d processes, want at most 3", len(procs))
	}
	for i := 1; i < len(procs); i++ {
		if procs[i-1].CPUPercent < procs[i].CPUPercent {
			t.Errorf("not sorted by cpu at %d", i)
		}
	}
}
