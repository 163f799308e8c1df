package bridge

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// WorkerStats is a point-in-time snapshot of the live worker process.
type WorkerStats struct {
	PID        int
	CPUPercent float64
	RSSBytes   uint64
	Restarts   int
}

// Stats inspects the live worker's resource usage. Fails with
// ErrProcessUnavailable when no worker is running.
func (b *Bridge) Stats() (*WorkerStats, error) {
	b.mu.Lock()
	w := b.worker
	restarts := b.restarts
	b.mu.Unlock()

	if w == nil {
		return nil, ErrProcessUnavailable
	}
	proc, err := process.NewProcess(int32(w.PID))
	if err != nil {
		return nil, fmt.Errorf("inspecting worker process %d: %w", w.PID, err)
	}
	cpu, _ := proc.CPUPercent()
	var rss uint64
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}
	return &WorkerStats{
		PID:        w.PID,
		CPUPercent: cpu,
		RSSBytes:   rss,
		Restarts:   restarts,
	}, nil
}
