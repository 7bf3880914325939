package domain

import "time"

// DefaultQueueCap is the default maximum number of queued records.
// When exceeded, the oldest entry is evicted.
const DefaultQueueCap = 500

// DefaultMaxAttempts is the default per-item delivery attempt cap.
// Items at the cap stay in the queue for caller visibility; they are
// never attempted again and never silently deleted.
const DefaultMaxAttempts = 5

// QueueItem is a record parked in the delivery queue together with its
// retry bookkeeping. Attempts and LastError mutate on each retry; the
// record itself is immutable.
type QueueItem struct {
	Record        CaptureRecord `json:"record"`
	Attempts      int           `json:"attempts"`
	QueuedAt      time.Time     `json:"queuedAt"`
	LastAttemptAt time.Time     `json:"lastAttemptAt"`
	LastError     string        `json:"lastError,omitempty"`
}

// Retriable reports whether the item may still be attempted under the
// given attempt cap.
func (i QueueItem) Retriable(maxAttempts int) bool {
	return i.Attempts < maxAttempts
}

// DrainSummary reports the outcome of one queue drain pass.
type DrainSummary struct {
	// Processed is the number of items attempted in this pass.
	Processed int `json:"processed"`
	// Succeeded is the number of items delivered and removed.
	Succeeded int `json:"succeeded"`
	// Remaining is the queue length after the pass, including items
	// that already exhausted their attempt cap.
	Remaining int `json:"remaining"`
}
