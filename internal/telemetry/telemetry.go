// Package telemetry samples host state on a fixed cadence: CPU, memory,
// disk, network, battery, audio, bluetooth, load, uptime. Sampling is
// best-effort; an individual probe failure degrades that field to its
// typed zero value and never aborts the snapshot.
package telemetry

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gonet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"
	"go.uber.org/zap"
)

// Memory is virtual-memory usage in the units the dashboard wants.
type Memory struct {
	Percent     float64 `json:"percent"`
	AvailableGB float64 `json:"available_gb"`
	TotalGB     float64 `json:"total_gb"`
}

// Disk is root-partition usage.
type Disk struct {
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
	Percent float64 `json:"percent"`
}

// Network is connectivity plus interface counters.
type Network struct {
	WifiConnected bool   `json:"wifi_connected"`
	WifiSSID      string `json:"wifi_ssid,omitempty"`
	BytesSent     uint64 `json:"bytes_sent"`
	BytesRecv     uint64 `json:"bytes_recv"`
}

// Battery is present only on machines that have one.
type Battery struct {
	Percent         int  `json:"percent"`
	Plugged         bool `json:"plugged"`
	TimeLeftMinutes int  `json:"time_left_minutes,omitempty"`
}

// Audio is default-sink volume state.
type Audio struct {
	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`
}

// Bluetooth is adapter state.
type Bluetooth struct {
	Powered   bool `json:"powered"`
	Available bool `json:"available"`
}

// Snapshot is one full telemetry sample. All top-level fields are always
// present; Battery is nil on machines without one.
type Snapshot struct {
	Timestamp     time.Time  `json:"timestamp"`
	CPUPercent    float64    `json:"cpu_percent"`
	CPUCount      int        `json:"cpu_count"`
	Memory        Memory     `json:"memory"`
	Disk          Disk       `json:"disk"`
	Network       Network    `json:"network"`
	Battery       *Battery   `json:"battery"`
	Audio         Audio      `json:"audio"`
	Bluetooth     Bluetooth  `json:"bluetooth"`
	LoadAverage   [3]float64 `json:"load_average"`
	UptimeSeconds uint64     `json:"uptime_seconds"`
}

// ProcessInfo is one entry from TopProcesses.
type ProcessInfo struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
}

// TemperatureReading is one sensor value.
type TemperatureReading struct {
	SensorKey string  `json:"sensor"`
	Current   float64 `json:"current"`
	High      float64 `json:"high"`
	Critical  float64 `json:"critical"`
}

// Sampler periodically gathers snapshots. The last successful snapshot is
// always served, even while a newer sample is failing.
type Sampler struct {
	log      *zap.Logger
	interval time.Duration
	probes   *probeSet

	current atomic.Pointer[Snapshot]
}

// NewSampler builds a sampler with the given cadence.
func NewSampler(log *zap.Logger, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sampler{
		log:      log,
		interval: interval,
		probes:   defaultProbes(),
	}
}

// Run samples on the configured interval until the context is cancelled.
// A failing iteration logs and keeps the previous snapshot.
func (s *Sampler) Run(ctx context.Context) {
	s.log.Info("starting system monitoring", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Prime immediately so GetState never waits a full interval.
	s.store(s.Sample(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store(s.Sample(ctx))
		}
	}
}

func (s *Sampler) store(snap Snapshot) {
	s.current.Store(&snap)
}

// GetState returns the last successful snapshot, sampling synchronously
// on first use.
func (s *Sampler) GetState(ctx context.Context) Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	snap := s.Sample(ctx)
	s.store(snap)
	return snap
}

// Sample gathers one full snapshot. Each probe degrades independently.
func (s *Sampler) Sample(ctx context.Context) Snapshot {
	snap := Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		s.log.Error("cpu sample failed", zap.Error(err))
	} else if len(pct) > 0 {
		snap.CPUPercent = round2(pct[0])
	}
	if n, err := cpu.Counts(true); err == nil {
		snap.CPUCount = n
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		s.log.Error("memory sample failed", zap.Error(err))
	} else {
		snap.Memory = Memory{
			Percent:     round2(vm.UsedPercent),
			AvailableGB: toGB(vm.Available),
			TotalGB:     toGB(vm.Total),
		}
	}

	if du, err := disk.Usage("/"); err != nil {
		s.log.Error("disk sample failed", zap.Error(err))
	} else {
		snap.Disk = Disk{
			TotalGB: toGB(du.Total),
			UsedGB:  toGB(du.Used),
			FreeGB:  toGB(du.Free),
			Percent: round2(du.UsedPercent),
		}
	}

	snap.Network = s.sampleNetwork(ctx)
	snap.Battery = s.probes.battery(s.log)
	snap.Audio = s.sampleAudio(ctx)
	snap.Bluetooth = s.sampleBluetooth(ctx)

	if avg, err := load.Avg(); err != nil {
		s.log.Error("load sample failed", zap.Error(err))
	} else {
		snap.LoadAverage = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	if up, err := host.Uptime(); err == nil {
		snap.UptimeSeconds = up
	}

	return snap
}

func (s *Sampler) sampleNetwork(ctx context.Context) Network {
	net := Network{}

	connected, ssid, err := s.probes.wifi(ctx)
	if err != nil {
		s.log.Warn("wifi probe failed", zap.Error(err))
	} else {
		net.WifiConnected = connected
		net.WifiSSID = ssid
	}

	if counters, err := gonet.IOCounters(false); err != nil {
		s.log.Warn("net counters failed", zap.Error(err))
	} else if len(counters) > 0 {
		net.BytesSent = counters[0].BytesSent
		net.BytesRecv = counters[0].BytesRecv
	}
	return net
}

func (s *Sampler) sampleAudio(ctx context.Context) Audio {
	audio, err := s.probes.audio(ctx)
	if err != nil {
		s.log.Warn("audio probe failed", zap.Error(err))
		return Audio{}
	}
	return audio
}

func (s *Sampler) sampleBluetooth(ctx context.Context) Bluetooth {
	bt, err := s.probes.bluetooth(ctx)
	if err != nil {
		s.log.Debug("bluetooth probe failed", zap.Error(err))
		return Bluetooth{}
	}
	return bt
}

// TopProcesses lists the heaviest processes by CPU. Not part of the
// periodic snapshot; queried on demand.
func (s *Sampler) TopProcesses(limit int) []ProcessInfo {
	procs, err := process.Processes()
	if err != nil {
		s.log.Error("process listing failed", zap.Error(err))
		return nil
	}

	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		cpuPct, _ := p.CPUPercent()
		memPct, _ := p.MemoryPercent()
		out = append(out, ProcessInfo{
			PID:           p.Pid,
			Name:          name,
			CPUPercent:    cpuPct,
			MemoryPercent: memPct,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CPUPercent > out[j].CPUPercent })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Temperature reads hardware sensors. Separate accessor, not part of the
// periodic snapshot; nil when sensors are unavailable.
func (s *Sampler) Temperature() []TemperatureReading {
	temps, err := sensors.SensorsTemperatures()
	if err != nil {
		s.log.Debug("temperature sensors unavailable", zap.Error(err))
		return nil
	}
	out := make([]TemperatureReading, 0, len(temps))
	for _, t := range temps {
		out = append(out, TemperatureReading{
			SensorKey: t.SensorKey,
			Current:   t.Temperature,
			High:      t.High,
			Critical:  t.Critical,
		})
	}
	return out
}

func toGB(b uint64) float64 {
	return round2(float64(b) / (1 << 30))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
