package domain

// DeliveryOutcome classifies a successful capture response from the remote
// service. All three outcomes count as delivered: once the server has
// acknowledged the record, responsibility for it leaves this process.
type DeliveryOutcome int

const (
	// DeliveryPublished means the server published the record downstream.
	DeliveryPublished DeliveryOutcome = iota
	// DeliveryDuplicate means the server had already seen this record.
	// Terminal success: any matching queue entry is removed.
	DeliveryDuplicate
	// DeliveryAccepted means the server accepted the record but parked it
	// in its own retry queue. The server owns delivery from here.
	DeliveryAccepted
)

// String returns the wire-level status name for the outcome.
func (o DeliveryOutcome) String() string {
	switch o {
	case DeliveryPublished:
		return "published"
	case DeliveryDuplicate:
		return "duplicate"
	case DeliveryAccepted:
		return "queued"
	default:
		return "unknown"
	}
}
