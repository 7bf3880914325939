package domain

// Command is the closed set of operations the sync subsystem accepts.
// The marker method seals the union: only the types in this file can be
// dispatched, and the dispatcher's type switch is exhaustive over them.
type Command interface {
	isCommand()
}

// Capture asks the engine to deliver one record, queueing it on failure.
type Capture struct {
	Record CaptureRecord
}

// RetryQueue asks the engine to drain the delivery queue now.
type RetryQueue struct{}

// GetStatus asks the engine for the current sync status.
type GetStatus struct{}

func (Capture) isCommand()    {}
func (RetryQueue) isCommand() {}
func (GetStatus) isCommand()  {}

// Disposition says where a submitted record ended up.
type Disposition int

const (
	// DispositionSent means the remote accepted the record inline.
	DispositionSent Disposition = iota
	// DispositionQueued means the record was parked for a later drain.
	DispositionQueued
	// DispositionDropped means the record was invalid and discarded.
	DispositionDropped
)

// String returns a human-readable disposition name.
func (d Disposition) String() string {
	switch d {
	case DispositionSent:
		return "sent"
	case DispositionQueued:
		return "queued"
	case DispositionDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// SubmitResult is the outcome of one Capture command.
type SubmitResult struct {
	RecordID    string      `json:"recordId"`
	Disposition Disposition `json:"disposition"`
}

// CommandResult carries the typed result of a dispatched command.
// Exactly one field is set, matching the command that produced it.
type CommandResult struct {
	Submit *SubmitResult
	Drain  *DrainSummary
	Status *Status
}
