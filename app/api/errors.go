package api

import (
	"errors"
	"net/http"

	"feedgate/app/source"
)

// Gated-endpoint failures. Feed consumers never see these; they apply to
// the webhook ingestion path only.
var (
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrBadSignature = errors.New("invalid webhook signature")
)

// statusFor maps the error taxonomy onto HTTP status codes. Every endpoint
// resolves failures through this single table instead of per-route
// mappings.
func statusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrBadSignature):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// userMessage returns the short, non-technical message shown to callers.
// Stack traces and wrapped details stay in the logs.
func userMessage(err error) string {
	switch {
	case errors.Is(err, source.ErrUnavailable):
		return "Service temporarily degraded, please retry later"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests, slow down"
	case errors.Is(err, ErrBadSignature):
		return "Invalid signature"
	default:
		return "Internal error"
	}
}
