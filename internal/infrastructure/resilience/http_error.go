package resilience

import (
	"fmt"
	"net/http"
	"strings"
)

// HTTPStatusError carries a non-2xx answer from an HTTP backend.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %s: %s", e.Operation, e.Status, body)
}

func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
