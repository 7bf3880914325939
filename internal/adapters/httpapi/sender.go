package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

const captureEndpoint = "/records/capture"

// RecordSender implements ports.RecordSender over HTTP.
type RecordSender struct {
	client client
	logger log.Logger
}

// NewRecordSender creates an HTTP record sender.
func NewRecordSender(httpClient ports.HTTPClient, baseURL, clientID string, logger log.Logger) *RecordSender {
	return &RecordSender{
		client: client{http: httpClient, baseURL: baseURL, clientID: clientID},
		logger: logger,
	}
}

type captureResponse struct {
	Status   string `json:"status"`
	RecordID string `json:"recordId"`
	Message  string `json:"message"`
}

// Send delivers one record with the given access token. The record payload
// is forwarded verbatim as the request body.
func (s *RecordSender) Send(ctx context.Context, accessToken string, record domain.CaptureRecord) (domain.DeliveryOutcome, error) {
	req, err := s.client.newRequest(ctx, captureEndpoint, record.Payload)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return 0, &domain.TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		// fall through to decode the outcome
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.CopyN(io.Discard, resp.Body, maxErrorBody)
		return 0, domain.ErrUnauthorized
	default:
		_, _ = io.CopyN(io.Discard, resp.Body, maxErrorBody)
		return 0, &domain.TransportError{Op: "send", Status: resp.StatusCode}
	}

	var out captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, &domain.TransportError{Op: "send", Err: fmt.Errorf("decode response: %w", err)}
	}

	switch out.Status {
	case "published":
		return domain.DeliveryPublished, nil
	case "duplicate":
		s.logger.Debug("record already captured", log.String("record_id", record.RecordID))
		return domain.DeliveryDuplicate, nil
	case "queued":
		// Server-side retry queue took over; delivered as far as we care.
		return domain.DeliveryAccepted, nil
	default:
		return 0, &domain.TransportError{Op: "send", Err: fmt.Errorf("unexpected capture status %q", out.Status)}
	}
}
