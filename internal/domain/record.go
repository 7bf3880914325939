package domain

import "encoding/json"

// CaptureRecord is a single unit of user interest to be delivered downstream.
// The payload is opaque: the sync subsystem forwards it verbatim and never
// inspects fields beyond RecordID.
type CaptureRecord struct {
	// RecordID is the stable unique identifier for this record.
	// It doubles as the deduplication key in the delivery queue.
	RecordID string `json:"recordId"`

	// Payload is the record body as produced by the capture source.
	// It is sent to the remote service unchanged.
	Payload json.RawMessage `json:"payload"`
}

// Validate checks that the record carries the required identifier.
func (r CaptureRecord) Validate() error {
	if r.RecordID == "" {
		return ErrMissingRecordID
	}
	return nil
}

// recordIDEnvelope is used to lift the identifier out of a raw payload.
type recordIDEnvelope struct {
	RecordID string `json:"recordId"`
}

// ParseRecord builds a CaptureRecord from a raw JSON payload produced by the
// capture source. The payload must be a JSON object containing a non-empty
// "recordId" field; the payload itself is retained verbatim.
func ParseRecord(payload []byte) (CaptureRecord, error) {
	var env recordIDEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return CaptureRecord{}, err
	}
	rec := CaptureRecord{RecordID: env.RecordID, Payload: json.RawMessage(payload)}
	if err := rec.Validate(); err != nil {
		return CaptureRecord{}, err
	}
	return rec, nil
}
