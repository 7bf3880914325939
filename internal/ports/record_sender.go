package ports

import (
	"context"

	"github.com/likelabs/likeship/internal/domain"
)

// RecordSender delivers a single capture record to the remote service.
//
// Error contract:
//   - domain.ErrUnauthorized when the access token is rejected (401);
//     the caller may refresh once and resend.
//   - *domain.TransportError for network failures, timeouts, 429, and 5xx.
//
// A nil error means the record is the server's responsibility now; the
// outcome says whether it was published, a duplicate, or server-queued.
type RecordSender interface {
	Send(ctx context.Context, accessToken string, record domain.CaptureRecord) (domain.DeliveryOutcome, error)
}

// HealthChecker probes the remote service liveness endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
