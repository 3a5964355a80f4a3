// Package llm holds reasoning service adapters. Each provider lives in its
// own subpackage; this package maps provider failures onto domain errors.
package llm

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// maxBodyInError caps how much of a response body is quoted in errors.
const maxBodyInError = 512

// StatusError converts a non-2xx response into an error. Client errors other
// than rate limiting and request timeouts wrap domain.ErrRequestRejected so
// they are not retried.
func StatusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBodyInError {
		msg = msg[:maxBodyInError] + "..."
	}
	if IsRejection(status) {
		return fmt.Errorf("%w: %s error (status %d): %s", domain.ErrRequestRejected, provider, status, msg)
	}
	return fmt.Errorf("%s error (status %d): %s", provider, status, msg)
}

// IsRejection reports whether a status means the request itself was refused.
func IsRejection(status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return false
	}
	return status >= 400 && status < 500
}

// DecodeError wraps a response that could not be understood.
func DecodeError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrMalformedReply, provider, err)
}

// Malformed reports a structurally invalid response.
func Malformed(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrMalformedReply, provider, fmt.Sprintf(format, args...))
}
