package plugkit

import (
	"sync"
	"time"
)

// ScanSource says where a discovery pass got its contents.
type ScanSource string

// ScanSource constants.
const (
	// SourceScan means the pass walked the discovery tree and loaded units.
	SourceScan ScanSource = "scan"
	// SourceCache means the pass restored the key set from a valid disk
	// cache entry without loading units.
	SourceCache ScanSource = "cache"
)

// ScanOutcome says how a discovery pass ended.
type ScanOutcome string

// ScanOutcome constants.
const (
	OutcomeCompleted ScanOutcome = "completed"
	OutcomeFailed    ScanOutcome = "failed"
)

// UnitFailure records one plugin unit whose load failed during a pass.
// Failures are recorded, not propagated: the rest of the pass continues.
type UnitFailure struct {
	Path string
	Err  string
}

// ScanReport summarises one discovery pass.
type ScanReport struct {
	Registry string
	PassID   string
	Source   ScanSource
	Outcome  ScanOutcome
	Started  time.Time
	Duration time.Duration
	// Units is the number of plugin units covered by the pass.
	Units int
	// Types is the number of keys the pass made visible.
	Types int
	// Failures lists units that failed to load. A pass with failures can
	// still complete.
	Failures []UnitFailure
	// Error holds the fatal error for a failed pass, empty otherwise.
	Error string
}

// scanHistory is a bounded ring of the most recent scan reports.
type scanHistory struct {
	mu      sync.RWMutex
	cap     int
	reports []*ScanReport
}

func newScanHistory(capacity int) *scanHistory {
	if capacity <= 0 {
		capacity = 16
	}
	return &scanHistory{cap: capacity}
}

func (h *scanHistory) add(r *ScanReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, r)
	if len(h.reports) > h.cap {
		h.reports = h.reports[len(h.reports)-h.cap:]
	}
}

// last returns the most recent report, or nil.
func (h *scanHistory) last() *ScanReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.reports) == 0 {
		return nil
	}
	return h.reports[len(h.reports)-1]
}

// recent returns up to n reports, newest first.
func (h *scanHistory) recent(n int) []*ScanReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.reports) {
		n = len(h.reports)
	}
	out := make([]*ScanReport, 0, n)
	for i := len(h.reports) - 1; i >= len(h.reports)-n; i-- {
		out = append(out, h.reports[i])
	}
	return out
}
