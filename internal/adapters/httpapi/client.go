// Package httpapi implements the remote-service ports over HTTPS/JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
)

// maxErrorBody bounds how much of an error response is read for logging.
const maxErrorBody = 4 << 10

// client holds what every remote call needs: transport, base URL, and the
// per-install identifier sent with each request.
type client struct {
	http     ports.HTTPClient
	baseURL  string
	clientID string
}

func (c *client) newRequest(ctx context.Context, endpoint string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Likeship-Client-Id", c.clientID)
	req.Header.Set("X-Agent-Hostname", hostname())
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	return req, nil
}

// postJSON marshals in, POSTs it, and decodes a 2xx response into out.
// Non-2xx responses are returned as (*http.Response).StatusCode via the
// status return with the body drained; callers map status codes to domain
// errors because the mapping differs per endpoint.
func (c *client) postJSON(ctx context.Context, op, endpoint string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := c.newRequest(ctx, endpoint, body)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// Drain so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, maxErrorBody)
		return resp.StatusCode, nil
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
