// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package stats collects the agent's usage and host figures for the stats
// endpoint.
package stats

import (
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/netgrid-labs/stencil"
	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
)

func Version() string {
	return stencil.Version
}

// System reads host figures best-effort. A probe failure is logged and the
// section is omitted rather than failing the stats request.
func System() *apimodel.SystemStats {
	vm, err := mem.VirtualMemory()
	if err != nil {
		slog.Debug("Failed to read memory stats", "error", err)
		return nil
	}

	sys := &apimodel.SystemStats{
		MemoryUsedMB:  vm.Used / (1024 * 1024),
		MemoryTotalMB: vm.Total / (1024 * 1024),
	}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		sys.CPUPercent = percents[0]
	}

	if uptime, err := host.Uptime(); err == nil {
		sys.UptimeSeconds = uptime
	}

	return sys
}
