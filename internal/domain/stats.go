package domain

import "time"

// Stats holds the monotonic capture/delivery counters and last-event
// timestamps. Stats are derived bookkeeping: they can always be recomputed
// from the queue and delivery history and are never authoritative.
type Stats struct {
	// Captured counts every record handed to the sync engine, whether or
	// not delivery later succeeded.
	Captured int64 `json:"captured"`
	// Sent counts records the remote service accepted (published or
	// duplicate).
	Sent           int64     `json:"sent"`
	LastCapturedAt time.Time `json:"lastCapturedAt"`
	LastSyncedAt   time.Time `json:"lastSyncedAt"`
}

// RecordCapture bumps the capture counter.
func (s *Stats) RecordCapture(now time.Time) {
	s.Captured++
	s.LastCapturedAt = now
}

// RecordSent bumps the delivery counter.
func (s *Stats) RecordSent(now time.Time) {
	s.Sent++
	s.LastSyncedAt = now
}

// Status is the point-in-time view exposed to UI callers.
type Status struct {
	Authenticated  bool      `json:"authenticated"`
	SubjectID      string    `json:"subjectId,omitempty"`
	QueueSize      int       `json:"queueSize"`
	Captured       int64     `json:"captured"`
	Sent           int64     `json:"sent"`
	LastCapturedAt time.Time `json:"lastCapturedAt"`
	LastSyncedAt   time.Time `json:"lastSyncedAt"`
}
