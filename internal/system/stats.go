package system

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats collects phase timings of one command run and renders the
// performance report printed with --stats.
type Stats struct {
	BuildVersion string

	mu     sync.Mutex
	start  time.Time
	phases []phase
}

type phase struct {
	name string
	d    time.Duration
}

func NewStats(buildVersion string) *Stats {
	return &Stats{BuildVersion: buildVersion, start: time.Now()}
}

// Mark starts timing a phase; call the returned func to stop it.
func (s *Stats) Mark(name string) func() {
	begin := time.Now()
	return func() {
		s.mu.Lock()
		s.phases = append(s.phases, phase{name: name, d: time.Since(begin)})
		s.mu.Unlock()
	}
}

// Elapsed is the time since NewStats.
func (s *Stats) Elapsed() time.Duration { return time.Since(s.start) }

// Usage samples the resident memory and CPU share of this process and the
// used share of system memory.
type Usage struct {
	RSS        uint64
	CPUPercent float64
	SysUsed    float64
}

func SampleUsage() (Usage, error) {
	var u Usage
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return u, err
	}
	if mi, err := p.MemoryInfo(); err == nil {
		u.RSS = mi.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		u.CPUPercent = cpu
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		u.SysUsed = vm.UsedPercent
	}
	return u, nil
}

// Report renders the timings, items processed per second and current
// resource usage.
func (s *Stats) Report(items int) string {
	total := s.Elapsed()
	var b strings.Builder
	b.WriteString("--- [PERFORMANCE REPORT] ---\n")
	fmt.Fprintf(&b, "Build: %s\n", s.BuildVersion)
	fmt.Fprintf(&b, "Total Time: %.2fs\n", total.Seconds())

	s.mu.Lock()
	for _, ph := range s.phases {
		fmt.Fprintf(&b, "%s: %.2fs\n", ph.name, ph.d.Seconds())
	}
	s.mu.Unlock()

	if total > 0 {
		fmt.Fprintf(&b, "Throughput: %.2f items/s\n", float64(items)/total.Seconds())
	}
	if u, err := SampleUsage(); err == nil {
		fmt.Fprintf(&b, "RSS: %.1f MiB | CPU: %.1f%% | System memory: %.1f%%\n",
			float64(u.RSS)/(1<<20), u.CPUPercent, u.SysUsed)
	}
	b.WriteString("----------------------------\n")
	return b.String()
}

// AppendLog appends a one-line summary of the run to path.
func (s *Stats) AppendLog(path, label string, items int) error {
	line := fmt.Sprintf("[%s] Build: %s | %s | Items: %d | Total: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"), s.BuildVersion, label, items, s.Elapsed().Seconds())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
