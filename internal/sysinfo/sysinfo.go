// Package sysinfo describes the machine an ingest run executed on.
package sysinfo

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// Info is recorded alongside each run so timings can be compared across hosts.
type Info struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Platform string `json:"platform" yaml:"platform"`
	CPU      string `json:"cpu" yaml:"cpu"`
	Cores    int    `json:"cores" yaml:"cores"`
	RAM      string `json:"ram" yaml:"ram"`
}

// Collect gathers host details. Fields that cannot be read are filled with
// fallbacks rather than failing the run.
func Collect() Info {
	info := Info{
		Platform: runtime.GOOS,
		CPU:      "unknown",
		Cores:    runtime.NumCPU(),
		RAM:      "unknown",
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		if h.Platform != "" {
			info.Platform = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
		}
	} else if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPU = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}

	return info
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s, %s x%d, %s)", i.Hostname, i.Platform, i.CPU, i.Cores, i.RAM)
}
