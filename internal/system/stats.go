package system

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats снимок потребления ресурсов текущим процессом.
type ProcessStats struct {
	CPUPercent    float64 `yaml:"cpuPercent" json:"cpuPercent"`
	RSSBytes      uint64  `yaml:"rssBytes" json:"rssBytes"`
	Threads       int32   `yaml:"threads" json:"threads"`
	Goroutines    int     `yaml:"goroutines" json:"goroutines"`
	SystemMemUsed float64 `yaml:"systemMemUsedPercent" json:"systemMemUsedPercent"`
}

// CollectProcessStats читает статистику процесса через gopsutil.
func CollectProcessStats() (ProcessStats, error) {
	stats := ProcessStats{Goroutines: runtime.NumGoroutine()}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats, fmt.Errorf("process stats: %w", err)
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if info, err := proc.MemoryInfo(); err == nil && info != nil {
		stats.RSSBytes = info.RSS
	}
	if n, err := proc.NumThreads(); err == nil {
		stats.Threads = n
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		stats.SystemMemUsed = vm.UsedPercent
	}
	return stats, nil
}

// String форматирует статистику для отчета.
func (s ProcessStats) String() string {
	return fmt.Sprintf("CPU: %.1f%% | RSS: %.1f MB | Threads: %d | Goroutines: %d | System RAM: %.1f%%",
		s.CPUPercent, float64(s.RSSBytes)/(1024*1024), s.Threads, s.Goroutines, s.SystemMemUsed)
}
