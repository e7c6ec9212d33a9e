// Package probe implements the Clock & Resource Probe (C1): process
// CPU%, RSS, virtual memory, thread count, and cumulative
// network/disk IO counters, each cached behind a poll interval. All probes
// degrade silently per spec.md §4.1 — they are an advisory signal, not a
// correctness primitive.
package probe

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultPollInterval is the spec.md §4.1 default.
const DefaultPollInterval = 5 * time.Second

// IOCounters is a before/after byte pair.
type IOCounters struct {
	DownBytes uint64
	UpBytes   uint64
}

type cachedFloat struct {
	mu       sync.Mutex
	val      float64
	lastPoll time.Time
}

type cachedInt struct {
	mu       sync.Mutex
	val      int64
	lastPoll time.Time
}

type cachedIO struct {
	mu       sync.Mutex
	val      IOCounters
	lastPoll time.Time
	baseline IOCounters
	haveBase bool
}

// Probe samples process- and system-level resource usage, caching each
// metric independently behind Interval.
type Probe struct {
	Interval time.Duration

	proc *process.Process

	cpu     cachedFloat
	mem     cachedInt
	vmem    cachedInt
	threads cachedInt
	network cachedIO
	diskIO  cachedIO

	affinityMask string
}

// New returns a Probe bound to the current process.
func New(interval time.Duration) *Probe {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Probe{Interval: interval}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		p.proc = proc
	}
	return p
}

// CPUPercent returns process CPU usage as a percentage, as gopsutil's
// Process.CPUPercent reports it: total CPU time over wall time since the
// process started, not a per-interval delta and not divided by the core
// count. Degrades to the last good value (or 0) on any error.
func (p *Probe) CPUPercent() float64 {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()

	if time.Since(p.cpu.lastPoll) < p.Interval && !p.cpu.lastPoll.IsZero() {
		return p.cpu.val
	}
	p.cpu.lastPoll = time.Now()

	if p.proc == nil {
		return p.cpu.val
	}
	pct, err := p.proc.CPUPercent()
	if err != nil {
		return p.cpu.val
	}
	p.cpu.val = pct
	return p.cpu.val
}

// MemoryMB returns resident set size in megabytes.
func (p *Probe) MemoryMB() int64 {
	p.mem.mu.Lock()
	defer p.mem.mu.Unlock()

	if time.Since(p.mem.lastPoll) < p.Interval && !p.mem.lastPoll.IsZero() {
		return p.mem.val
	}
	p.mem.lastPoll = time.Now()

	if p.proc == nil {
		return p.mem.val
	}
	mi, err := p.proc.MemoryInfo()
	if err != nil || mi == nil {
		return p.mem.val
	}
	p.mem.val = int64(mi.RSS / (1024 * 1024))
	return p.mem.val
}

// VirtualMemoryKB returns the process's virtual memory size in kilobytes.
func (p *Probe) VirtualMemoryKB() int64 {
	p.vmem.mu.Lock()
	defer p.vmem.mu.Unlock()

	if time.Since(p.vmem.lastPoll) < p.Interval && !p.vmem.lastPoll.IsZero() {
		return p.vmem.val
	}
	p.vmem.lastPoll = time.Now()

	if p.proc == nil {
		return p.vmem.val
	}
	mi, err := p.proc.MemoryInfo()
	if err != nil || mi == nil {
		return p.vmem.val
	}
	p.vmem.val = int64(mi.VMS / 1024)
	return p.vmem.val
}

// ThreadCount returns the current thread count of the process.
func (p *Probe) ThreadCount() int64 {
	p.threads.mu.Lock()
	defer p.threads.mu.Unlock()

	if time.Since(p.threads.lastPoll) < p.Interval && !p.threads.lastPoll.IsZero() {
		return p.threads.val
	}
	p.threads.lastPoll = time.Now()

	if p.proc == nil {
		return p.threads.val
	}
	n, err := p.proc.NumThreads()
	if err != nil {
		return p.threads.val
	}
	p.threads.val = int64(n)
	return p.threads.val
}

// NetworkCumulative returns cumulative network bytes since the first call
// (spec.md §4.1 "init_network_usage" baseline).
func (p *Probe) NetworkCumulative() IOCounters {
	p.network.mu.Lock()
	defer p.network.mu.Unlock()
	return pollIO(&p.network, p.Interval, func() (IOCounters, error) {
		counters, err := net.IOCounters(false)
		if err != nil || len(counters) == 0 {
			return IOCounters{}, err
		}
		var down, up uint64
		for _, c := range counters {
			down += c.BytesRecv
			up += c.BytesSent
		}
		return IOCounters{DownBytes: down, UpBytes: up}, nil
	})
}

// DiskCumulative returns cumulative disk IO bytes since the first call.
// When OS counters are unavailable it returns the last good value (zero
// before the first successful sample); there is no temp-directory fallback.
func (p *Probe) DiskCumulative() IOCounters {
	p.diskIO.mu.Lock()
	defer p.diskIO.mu.Unlock()
	return pollIO(&p.diskIO, p.Interval, func() (IOCounters, error) {
		counters, err := disk.IOCounters()
		if err != nil || len(counters) == 0 {
			return IOCounters{}, err
		}
		var read, write uint64
		for _, c := range counters {
			read += c.ReadBytes
			write += c.WriteBytes
		}
		return IOCounters{DownBytes: read, UpBytes: write}, nil
	})
}

// pollIO applies the cache-then-baseline logic shared by network/disk
// probes: the first successful sample becomes the baseline, and every
// subsequent value returned is relative to it.
func pollIO(c *cachedIO, interval time.Duration, sample func() (IOCounters, error)) IOCounters {
	if time.Since(c.lastPoll) < interval && !c.lastPoll.IsZero() {
		return c.val
	}
	c.lastPoll = time.Now()

	raw, err := sample()
	if err != nil {
		return c.val
	}
	if !c.haveBase {
		c.baseline = raw
		c.haveBase = true
	}
	c.val = IOCounters{
		DownBytes: subSaturating(raw.DownBytes, c.baseline.DownBytes),
		UpBytes:   subSaturating(raw.UpBytes, c.baseline.UpBytes),
	}
	return c.val
}

func subSaturating(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
