package ai

import "errors"

var (
	// ErrNotConfigured marks a backend with no API key. Callers turn this
	// into an informational answer rather than a failure.
	ErrNotConfigured = errors.New("ai: backend not configured")

	// ErrTimeout marks a query that exceeded the processing budget.
	ErrTimeout = errors.New("ai: request timed out")

	// ErrRateLimited marks a user over their hourly request budget. No
	// backend call has been made when this is returned.
	ErrRateLimited = errors.New("ai: rate limit exceeded")
)

// UpstreamError wraps a backend failure so the boundary layer can map it
// to a gateway status while keeping the provider's message.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return "ai: " + e.Provider + " backend: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
