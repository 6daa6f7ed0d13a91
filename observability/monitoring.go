// Package observability aggregates client-side counters for debugging
// and the inspect tooling.
package observability

import (
	"sync/atomic"
)

// Monitor collects counters across all open sessions. All methods are
// safe for concurrent use.
type Monitor struct {
	messagesSent     atomic.Uint64
	messagesFailed   atomic.Uint64
	eventsReconciled atomic.Uint64
	bulkSweeps       atomic.Uint64
}

type Stats struct {
	MessagesSent     uint64 `json:"messages_sent"`
	MessagesFailed   uint64 `json:"messages_failed"`
	EventsReconciled uint64 `json:"events_reconciled"`
	BulkSweeps       uint64 `json:"bulk_sweeps"`
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) IncrMessagesSent()     { m.messagesSent.Add(1) }
func (m *Monitor) IncrMessagesFailed()   { m.messagesFailed.Add(1) }
func (m *Monitor) IncrEventsReconciled() { m.eventsReconciled.Add(1) }
func (m *Monitor) IncrBulkSweeps()       { m.bulkSweeps.Add(1) }

func (m *Monitor) Snapshot() Stats {
	return Stats{
		MessagesSent:     m.messagesSent.Load(),
		MessagesFailed:   m.messagesFailed.Load(),
		EventsReconciled: m.eventsReconciled.Load(),
		BulkSweeps:       m.bulkSweeps.Load(),
	}
}
