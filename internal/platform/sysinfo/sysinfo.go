// Package sysinfo reports host and process figures for status commands.
package sysinfo

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var started = time.Now()

type Snapshot struct {
	OS            string        `json:"os"`
	Kernel        string        `json:"kernel"`
	GoVersion     string        `json:"go_version"`
	CPUCount      int           `json:"cpu_count"`
	CPUPercent    float64       `json:"cpu_percent"`
	MemUsedMB     uint64        `json:"mem_used_mb"`
	MemTotalMB    uint64        `json:"mem_total_mb"`
	MemPercent    float64       `json:"mem_percent"`
	ProcessRSSMB  uint64        `json:"process_rss_mb"`
	Goroutines    int           `json:"goroutines"`
	Uptime        time.Duration `json:"uptime"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// Collect gathers a snapshot. Figures the host refuses to report stay zero.
func Collect(ctx context.Context) Snapshot {
	uptime := time.Since(started)
	s := Snapshot{
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        uptime.Round(time.Second),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		s.OS = info.Platform + " " + info.PlatformVersion
		s.Kernel = info.KernelVersion
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.CPUCount = n
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemUsedMB = vm.Used / 1024 / 1024
		s.MemTotalMB = vm.Total / 1024 / 1024
		s.MemPercent = vm.UsedPercent
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if m, err := p.MemoryInfoWithContext(ctx); err == nil {
			s.ProcessRSSMB = m.RSS / 1024 / 1024
		}
	}
	return s
}
