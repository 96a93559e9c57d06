package health

import (
	"runtime"
	"syscall"
)

// Status is one point-in-time system reading used by the monitoring sweep
// and the health endpoint.
type Status struct {
	MemoryUsedMB   int     `json:"memory_used_mb"`
	StorageUsedPct float64 `json:"storage_used_pct"`
	Goroutines     int     `json:"goroutines"`
}

// Prober samples process memory and filesystem usage. No suitable library is
// carried by the stack for this, so it reads the runtime and statfs directly.
type Prober struct {
	storagePath string
}

func NewProber(storagePath string) *Prober {
	if storagePath == "" {
		storagePath = "/"
	}
	return &Prober{storagePath: storagePath}
}

func (p *Prober) Probe() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := Status{
		MemoryUsedMB: int(mem.Alloc / 1024 / 1024),
		Goroutines:   runtime.NumGoroutine(),
	}

	var fs syscall.Statfs_t
	if err := syscall.Statfs(p.storagePath, &fs); err == nil && fs.Blocks > 0 {
		used := float64(fs.Blocks-fs.Bavail) / float64(fs.Blocks) * 100
		status.StorageUsedPct = used
	}
	return status
}
