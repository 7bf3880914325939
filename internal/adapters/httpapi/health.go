package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
)

const healthEndpoint = "/health"

// HealthClient implements ports.HealthChecker against GET /health.
type HealthClient struct {
	http    ports.HTTPClient
	baseURL string
}

// NewHealthClient creates an HTTP health checker.
func NewHealthClient(httpClient ports.HTTPClient, baseURL string) *HealthClient {
	return &HealthClient{http: httpClient, baseURL: baseURL}
}

// Ping probes the liveness endpoint.
func (h *HealthClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+healthEndpoint, nil)
	if err != nil {
		return err
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, maxErrorBody)

	if resp.StatusCode != http.StatusOK {
		return &domain.TransportError{Op: "health", Status: resp.StatusCode}
	}
	return nil
}
