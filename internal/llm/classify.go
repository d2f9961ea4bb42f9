package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

var transientMarkers = []string{
	"rate limit",
	"ratelimit",
	"too many requests",
	"429",
	"resource exhausted",
	"resource_exhausted",
	"quota",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection",
	"broken pipe",
	"eof",
	"service unavailable",
	"unavailable",
	"503",
	"502",
	"500 internal",
	"overload",
}

// IsTransient decides whether a provider error is worth retrying. All retry
// classification lives here so it can be tightened without touching callers.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
