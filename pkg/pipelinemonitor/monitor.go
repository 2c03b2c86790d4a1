// Package pipelinemonitor keeps a bounded, in-memory trail of recent pipeline events for the admin API.
package pipelinemonitor

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	StageCycle     = "cycle"
	StageGenerate  = "generate"
	StagePublish   = "publish"
	StageReconcile = "reconcile"

	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	ItemID     string    `json:"item_id,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	Stage      string    `json:"stage"`          // cycle | generate | publish | reconcile
	Kind       string    `json:"kind,omitempty"` // artifact kind or publish channel
	Status     string    `json:"status"`         // ok | error | skipped
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

type Stats struct {
	TotalCycles     int64   `json:"total_cycles"`
	TotalGenerated  int64   `json:"total_generated"`
	TotalPublished  int64   `json:"total_published"`
	TotalReconciled int64   `json:"total_reconciled"`
	TotalErrors     int64   `json:"total_errors"`
	RecentEvents    []Event `json:"recent_events"`
}

// Monitor is a ring buffer of events plus running counters.
type Monitor struct {
	ttl time.Duration
	now func() time.Time

	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int

	totalCycles     int64
	totalGenerated  int64
	totalPublished  int64
	totalReconciled int64
	totalErrors     int64
}

// New keeps the last size events; ttl > 0 hides older ones from GetStats.
func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	e.Timestamp = m.now().UTC()

	if e.Status == StatusOK {
		switch e.Stage {
		case StageCycle:
			atomic.AddInt64(&m.totalCycles, 1)
		case StageGenerate:
			atomic.AddInt64(&m.totalGenerated, 1)
		case StagePublish:
			atomic.AddInt64(&m.totalPublished, 1)
		case StageReconcile:
			atomic.AddInt64(&m.totalReconciled, 1)
		}
	}
	if e.Status == StatusError {
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// GetStats returns counters and the retained events, oldest first.
func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	res := make([]Event, 0, m.count)
	start := (m.idx - m.count + len(m.events)) % len(m.events)
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalCycles:     atomic.LoadInt64(&m.totalCycles),
		TotalGenerated:  atomic.LoadInt64(&m.totalGenerated),
		TotalPublished:  atomic.LoadInt64(&m.totalPublished),
		TotalReconciled: atomic.LoadInt64(&m.totalReconciled),
		TotalErrors:     atomic.LoadInt64(&m.totalErrors),
		RecentEvents:    res,
	}
}

var (
	defaultMu      sync.RWMutex
	defaultMonitor = New(200, 0)
)

// Configure replaces the process-wide monitor. Call it once at startup.
func Configure(size int, ttl time.Duration) {
	defaultMu.Lock()
	defaultMonitor = New(size, ttl)
	defaultMu.Unlock()
}

func Default() *Monitor {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultMonitor
}

func Record(e Event) {
	Default().Record(e)
}

func GetStats() Stats {
	return Default().GetStats()
}

// Since fills DurationMs from start.
func Since(e Event, start time.Time) Event {
	e.DurationMs = time.Since(start).Milliseconds()
	return e
}

// StatusOf maps an error to ok/error.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

func ErrorOf(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
