package errorsdk

import (
	"context"
	"errors"
	"net"

	"github.com/go-resty/resty/v2"
)

// DefaultRetryPolicy is the retry condition used by [Client]. Every failed attempt
// is retried until the attempt budget set by [WithMaxRetries] runs out: transport
// errors, non-2xx statuses and unparseable bodies alike.
//
// A policy is only consulted for failed attempts. r is nil when no response was
// received, and err is one of [*TransportFailure], [*HTTPStatusFailure] or
// [*ParseFailure].
func DefaultRetryPolicy(_ *resty.Response, _ error) bool {
	return true
}

// ServerErrorRetryPolicy retries on HTTP 429 (rate limit) and 5xx server errors,
// and on transient connection errors. It does not retry on cancellation, DNS
// resolution failures, 4xx statuses or unparseable bodies.
//
// Supply it via [WithRetryPolicy] to stop spending attempts on reports the
// service has already rejected.
func ServerErrorRetryPolicy(_ *resty.Response, err error) bool {
	if err == nil {
		return false
	}

	var parseErr *ParseFailure
	if errors.As(err, &parseErr) {
		return false
	}

	var statusErr *HTTPStatusFailure
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 429 || statusErr.StatusCode >= 500
	}

	// Per-attempt timeouts surface as DeadlineExceeded and stay retryable
	if errors.Is(err, context.Canceled) {
		return false
	}

	var dnsErr *net.DNSError
	return !errors.As(err, &dnsErr)
}
